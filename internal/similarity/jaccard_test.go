package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decksage/simgraph/internal/deck"
	"decksage/simgraph/internal/graph"
)

func burnStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore(nil, graph.Options{})
	decks := [][]deck.CardCount{
		{{Name: "Lightning Bolt", Count: 4}, {Name: "Mountain", Count: 20}},
		{{Name: "Lightning Bolt", Count: 2}, {Name: "Chain Lightning", Count: 2}, {Name: "Mountain", Count: 18}},
		{{Name: "Counterspell", Count: 4}, {Name: "Island", Count: 20}},
		{{Name: "Opt", Count: 4}, {Name: "Island", Count: 18}, {Name: "Counterspell", Count: 2}},
		{{Name: "Shock", Count: 4}, {Name: "Mountain", Count: 16}, {Name: "Chain Lightning", Count: 1}},
	}
	for _, cards := range decks {
		s.AddDeck(deck.Deck{Cards: cards})
	}
	return s
}

func TestJaccard_Symmetric(t *testing.T) {
	j := NewJaccard(burnStore(t))
	names := []string{"Lightning Bolt", "Chain Lightning", "Mountain", "Shock", "Counterspell", "Opt", "Island", "Unknown"}
	for _, a := range names {
		for _, b := range names {
			sa, oka := j.Score(a, b)
			sb, okb := j.Score(b, a)
			if oka && okb {
				assert.InDelta(t, sa, sb, 1e-12, "%s/%s", a, b)
			}
			if a == b {
				assert.False(t, oka, "%s compared with itself", a)
			}
		}
	}
}

func TestJaccard_Values(t *testing.T) {
	j := NewJaccard(burnStore(t))

	// N(Bolt) = {Mountain, Chain}; N(Shock) = {Mountain, Chain}.
	s, ok := j.Score("Lightning Bolt", "Shock")
	require.True(t, ok)
	assert.InDelta(t, 1.0, s, 1e-12)

	// N(Bolt) = {Mountain, Chain}; N(Mountain) = {Bolt, Chain, Shock}.
	s, ok = j.Score("Lightning Bolt", "Mountain")
	require.True(t, ok)
	assert.InDelta(t, 1.0/4.0, s, 1e-12)

	s, ok = j.Score("Lightning Bolt", "Counterspell")
	require.True(t, ok)
	assert.Equal(t, 0.0, s)

	_, ok = j.Score("Unknown", "Lightning Bolt")
	assert.False(t, ok, "unknown query should be unavailable")
	s, ok = j.Score("Lightning Bolt", "Unknown")
	assert.True(t, ok)
	assert.Equal(t, 0.0, s)
}

func TestJaccard_ScoreAllMatchesScore(t *testing.T) {
	st := burnStore(t)
	j := NewJaccard(st)
	for _, q := range st.NodeNames() {
		all, ok := j.ScoreAll(q)
		require.True(t, ok, q)
		assert.NotContains(t, all, q)
		for _, c := range st.NodeNames() {
			if c == q {
				continue
			}
			want, _ := j.Score(q, c)
			assert.InDelta(t, want, all[c], 1e-12, "%s/%s", q, c)
		}
	}
}

func TestRank_TieBreakByName(t *testing.T) {
	j := NewJaccard(burnStore(t))
	got, ok := Rank(j, "Chain Lightning", 0)
	require.True(t, ok)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		assert.True(t, prev.Score > cur.Score || (prev.Score == cur.Score && prev.Name < cur.Name),
			"order broken at %d: %v", i, got)
	}

	top1, _ := Rank(j, "Chain Lightning", 1)
	assert.Len(t, top1, 1)

	_, ok = Rank(j, "Unknown", 5)
	assert.False(t, ok)
}

func TestTags(t *testing.T) {
	table, err := LoadTagsJSON(strings.NewReader(`{
		"Lightning Bolt": ["Burn", "instant"],
		"Chain Lightning": ["burn", "sorcery"],
		"Counterspell": ["counter", "instant"],
		"Vanilla": []
	}`))
	require.NoError(t, err)
	tp := NewTags(table)

	s, ok := tp.Score("Lightning Bolt", "Chain Lightning")
	require.True(t, ok)
	assert.InDelta(t, 1.0/3.0, s, 1e-12)

	s, ok = tp.Score("Lightning Bolt", "Vanilla")
	assert.True(t, ok)
	assert.Equal(t, 0.0, s)

	_, ok = tp.Score("Unknown", "Lightning Bolt")
	assert.False(t, ok)

	all, ok := tp.ScoreAll("Lightning Bolt")
	require.True(t, ok)
	assert.Len(t, all, 2)
	assert.NotContains(t, all, "Vanilla")
}

func TestLoadTagsJSON_CollidingNamesAreDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		table, err := LoadTagsJSON(strings.NewReader(`{"Shock": ["removal"], " Shock": ["Burn"]}`))
		require.NoError(t, err)
		require.Len(t, table, 1)
		assert.Equal(t, map[string]struct{}{"burn": {}}, table["Shock"], "run %d", i)
	}
}
