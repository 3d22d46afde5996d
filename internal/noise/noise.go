// Package noise lists generic cards, such as basic lands or basic energy,
// that co-occur with everything and so say little about similarity.
//
// Exclusion sets are tiered per game: LevelBasic ⊂ LevelCommon ⊂ LevelAll.
// Filtering is applied when ranking; the graph keeps full counts.
package noise

import (
	"fmt"
	"strings"
)

// Level selects an exclusion tier.
type Level int

const (
	LevelNone Level = iota
	LevelBasic
	LevelCommon
	LevelAll
)

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelCommon:
		return "common"
	case LevelAll:
		return "all"
	default:
		return "none"
	}
}

// ParseLevel accepts none, basic, common and all.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return LevelNone, nil
	case "basic":
		return LevelBasic, nil
	case "common":
		return LevelCommon, nil
	case "all":
		return LevelAll, nil
	}
	return LevelNone, fmt.Errorf("unknown noise level %q (want none, basic, common or all)", s)
}

// tiers[game][i] holds the cards added at level i+1.
var tiers = map[string][3][]string{
	"magic": {
		{
			"Plains", "Island", "Swamp", "Mountain", "Forest", "Wastes",
			"Snow-Covered Plains", "Snow-Covered Island", "Snow-Covered Swamp",
			"Snow-Covered Mountain", "Snow-Covered Forest", "Snow-Covered Wastes",
		},
		{
			"Command Tower", "City of Brass", "Mana Confluence", "Exotic Orchard",
			"Evolving Wilds", "Terramorphic Expanse", "Fabled Passage", "Prismatic Vista",
			"Polluted Delta", "Flooded Strand", "Bloodstained Mire", "Wooded Foothills",
			"Windswept Heath", "Marsh Flats", "Scalding Tarn", "Verdant Catacombs",
			"Arid Mesa", "Misty Rainforest",
		},
		{
			"Sol Ring", "Arcane Signet", "Commander's Sphere",
			"Mind Stone", "Fellwar Stone", "Swiftfoot Boots", "Lightning Greaves",
		},
	},
	"pokemon": {
		{
			"Grass Energy", "Fire Energy", "Water Energy", "Lightning Energy",
			"Psychic Energy", "Fighting Energy", "Darkness Energy", "Metal Energy",
			"Fairy Energy",
			"Basic Grass Energy", "Basic Fire Energy", "Basic Water Energy",
			"Basic Lightning Energy", "Basic Psychic Energy", "Basic Fighting Energy",
			"Basic Darkness Energy", "Basic Metal Energy", "Basic Fairy Energy",
		},
		{
			"Professor's Research", "Boss's Orders", "Ultra Ball", "Nest Ball",
			"Quick Ball", "Switch", "Iono",
		},
		{
			"Double Colorless Energy", "Rare Candy", "Pokégear 3.0", "Battle VIP Pass",
		},
	},
	"yugioh": {
		{},
		{
			"Ash Blossom & Joyous Spring", "Maxx \"C\"", "Effect Veiler",
			"Ghost Ogre & Snow Rabbit", "Infinite Impermanence",
		},
		{
			"Pot of Desires", "Pot of Extravagance", "Called by the Grave",
			"Forbidden Droplet", "Triple Tactics Talent", "Harpie's Feather Duster",
			"Lightning Storm", "Nibiru, the Primal Being",
		},
	},
}

// Filter answers IsNoise from precomputed per-game, per-level sets.
type Filter struct {
	sets map[string][4]map[string]bool
}

// NewFilter builds the cumulative tier sets for every known game.
func NewFilter() *Filter {
	f := &Filter{sets: make(map[string][4]map[string]bool, len(tiers))}
	for game, t := range tiers {
		var levels [4]map[string]bool
		levels[LevelNone] = map[string]bool{}
		acc := map[string]bool{}
		for i, cards := range t {
			for _, c := range cards {
				acc[c] = true
			}
			level := make(map[string]bool, len(acc))
			for c := range acc {
				level[c] = true
			}
			levels[i+1] = level
		}
		f.sets[game] = levels
	}
	return f
}

// IsNoise reports whether card is excluded for game at level. Unknown games
// exclude nothing.
func (f *Filter) IsNoise(game, card string, level Level) bool {
	if level <= LevelNone || level > LevelAll {
		return false
	}
	levels, ok := f.sets[strings.ToLower(game)]
	if !ok {
		return false
	}
	return levels[level][card]
}

// Games lists the games with exclusion tiers.
func (f *Filter) Games() []string {
	return []string{"magic", "pokemon", "yugioh"}
}

// Size returns how many cards level excludes for game.
func (f *Filter) Size(game string, level Level) int {
	levels, ok := f.sets[strings.ToLower(game)]
	if !ok || level <= LevelNone || level > LevelAll {
		return 0
	}
	return len(levels[level])
}

// Func returns a predicate bound to one game and level, or nil when nothing
// would be filtered.
func (f *Filter) Func(game string, level Level) func(card string) bool {
	if f.Size(game, level) == 0 {
		return nil
	}
	return func(card string) bool { return f.IsNoise(game, card, level) }
}
