package similarity

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/goccy/go-json"

	"decksage/simgraph/internal/db"
	"decksage/simgraph/internal/deck"
	"decksage/simgraph/internal/logging"
)

// VectorTable maps card names to embedding vectors.
type VectorTable map[string][]float32

// LoadVectorsJSON reads {"card name": [floats...]} and normalises names.
func LoadVectorsJSON(r io.Reader) (VectorTable, error) {
	var raw map[string][]float32
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding vectors: %w", err)
	}
	return VectorTable(normalizeKeys(raw, "vectors")), nil
}

// normalizeKeys re-keys raw by normalised card name. When several raw keys
// normalise to the same name the first in sorted raw order wins; the others
// are logged and dropped.
func normalizeKeys[V any](raw map[string]V, table string) map[string]V {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]V, len(raw))
	kept := make(map[string]string, len(raw))
	for _, k := range keys {
		n := deck.NormalizeName(k)
		if n == "" {
			continue
		}
		if prev, dup := kept[n]; dup {
			log := logging.Component("similarity")
			log.Warn().
				Str("table", table).Str("card", n).
				Str("kept", prev).Str("dropped", k).
				Msg("card names collide after normalisation")
			continue
		}
		kept[n] = k
		out[n] = raw[k]
	}
	return out
}

// LoadVectorsDB reads one embedding space from the sqlite embeddings table.
func LoadVectorsDB(ctx context.Context, d *db.DB, space string) (VectorTable, error) {
	m, err := d.Embeddings(ctx, space)
	if err != nil {
		return nil, fmt.Errorf("loading %s embeddings: %w", space, err)
	}
	return VectorTable(m), nil
}

// Dim returns the most common vector length, or 0 for an empty table.
func (t VectorTable) Dim() int {
	counts := make(map[int]int)
	best, bestN := 0, 0
	for _, v := range t {
		counts[len(v)]++
		if c := counts[len(v)]; c > bestN || (c == bestN && len(v) < best) {
			best, bestN = len(v), c
		}
	}
	return best
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0.0 for zero-norm vectors or mismatched lengths.
func CosineSimilarity(a, b []float32) float32 {
	c, _ := cosine(a, b)
	return float32(c)
}

// cosine reports ok=false when the vectors cannot be compared.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	c := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, c)), true
}

// SimilarCard is a card with its cosine similarity to a target embedding.
type SimilarCard struct {
	Name       string
	Similarity float32
}

// FindSimilar finds the top-N most similar cards to a target embedding.
// Excludes excludeName. Only returns cards with similarity >= minSimilarity.
// Results are sorted by descending similarity, then name.
func FindSimilar(target []float32, table VectorTable, excludeName string, topN int, minSimilarity float32) []SimilarCard {
	var results []SimilarCard
	for name, vec := range table {
		if name == excludeName {
			continue
		}
		c, ok := cosine(target, vec)
		if !ok {
			continue
		}
		if sim := float32(c); sim >= minSimilarity {
			results = append(results, SimilarCard{Name: name, Similarity: sim})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Name < results[j].Name
	})

	if len(results) > topN {
		results = results[:topN]
	}
	return results
}

// Vector scores cards by embedding cosine mapped onto [0, 1] as (c+1)/2.
type Vector struct {
	name  string
	table VectorTable
}

// NewVector builds a provider named name ("embed" or "text_embed").
func NewVector(name string, table VectorTable) *Vector {
	return &Vector{name: name, table: table}
}

func (v *Vector) Name() string { return v.name }

func (v *Vector) Size() int { return len(v.table) }

func (v *Vector) Score(query, candidate string) (float64, bool) {
	if query == candidate {
		return 0, false
	}
	a, ok := v.table[query]
	if !ok {
		return 0, false
	}
	b, ok := v.table[candidate]
	if !ok {
		return 0, false
	}
	c, ok := cosine(a, b)
	if !ok {
		return 0, false
	}
	return (c + 1) / 2, true
}

func (v *Vector) ScoreAll(query string) (map[string]float64, bool) {
	q, ok := v.table[query]
	if !ok {
		return nil, false
	}
	scores := make(map[string]float64, len(v.table))
	for name, vec := range v.table {
		if name == query {
			continue
		}
		if c, ok := cosine(q, vec); ok {
			scores[name] = (c + 1) / 2
		}
	}
	return scores, true
}
