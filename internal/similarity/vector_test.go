package similarity

import (
	"context"
	"math"
	"strings"
	"testing"

	"decksage/simgraph/internal/db"
)

func TestCosineSimilarity_Identical(t *testing.T) {
	sim := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3})
	if math.Abs(float64(sim)-1.0) > 0.0001 {
		t.Errorf("expected ~1.0, got %f", sim)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	sim := CosineSimilarity([]float32{1, 0, 0}, []float32{0, 1, 0})
	if math.Abs(float64(sim)) > 0.0001 {
		t.Errorf("expected ~0.0, got %f", sim)
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	sim := CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	if math.Abs(float64(sim)+1.0) > 0.0001 {
		t.Errorf("expected ~-1.0, got %f", sim)
	}
}

func TestCosineSimilarity_Degenerate(t *testing.T) {
	cases := map[string][2][]float32{
		"zero norm":  {{0, 0, 0}, {1, 0, 0}},
		"mismatched": {{1, 0}, {1, 0, 0}},
		"empty":      {nil, nil},
	}
	for name, c := range cases {
		if sim := CosineSimilarity(c[0], c[1]); sim != 0.0 {
			t.Errorf("%s: expected 0.0, got %f", name, sim)
		}
	}
}

func TestFindSimilar_Basic(t *testing.T) {
	table := VectorTable{
		"a": {1, 0, 0},
		"b": {0.9, 0.1, 0},
		"c": {0, 1, 0},
		"d": {-1, 0, 0},
	}
	results := FindSimilar([]float32{1, 0, 0}, table, "", 2, -1)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "a" || results[1].Name != "b" {
		t.Errorf("expected a then b, got %v", results)
	}
}

func TestFindSimilar_ExcludesSelfAndThreshold(t *testing.T) {
	table := VectorTable{
		"self":       {1, 0, 0},
		"similar":    {0.9, 0.1, 0},
		"orthogonal": {0, 1, 0},
	}
	results := FindSimilar([]float32{1, 0, 0}, table, "self", 5, 0.5)
	if len(results) != 1 || results[0].Name != "similar" {
		t.Fatalf("expected only 'similar', got %v", results)
	}
}

func TestVector_ScoreMapping(t *testing.T) {
	v := NewVector(SignalEmbed, VectorTable{
		"Lightning Bolt":  {1, 0},
		"Chain Lightning": {1, 0},
		"Counterspell":    {-1, 0},
		"Opt":             {0, 1},
	})

	cases := []struct {
		a, b   string
		want   float64
		wantOK bool
	}{
		{"Lightning Bolt", "Chain Lightning", 1.0, true},
		{"Lightning Bolt", "Counterspell", 0.0, true},
		{"Lightning Bolt", "Opt", 0.5, true},
		{"Lightning Bolt", "Lightning Bolt", 0, false},
		{"Lightning Bolt", "Unknown", 0, false},
		{"Unknown", "Opt", 0, false},
	}
	for _, c := range cases {
		got, ok := v.Score(c.a, c.b)
		if ok != c.wantOK || math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Score(%q,%q) = (%f,%v), want (%f,%v)", c.a, c.b, got, ok, c.want, c.wantOK)
		}
	}

	all, ok := v.ScoreAll("Lightning Bolt")
	if !ok || len(all) != 3 {
		t.Fatalf("ScoreAll: ok=%v len=%d", ok, len(all))
	}
	if _, self := all["Lightning Bolt"]; self {
		t.Error("query scored against itself")
	}
	if _, ok := v.ScoreAll("Unknown"); ok {
		t.Error("out-of-vocabulary query should be unavailable")
	}
}

func TestLoadVectorsJSON_NormalisesNames(t *testing.T) {
	table, err := LoadVectorsJSON(strings.NewReader(`{"  Lightning   Bolt ": [1, 0.5], "Opt": [0, 1]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(table["Lightning Bolt"]) != 2 {
		t.Errorf("expected normalised key, got %v", table)
	}
	if table.Dim() != 2 {
		t.Errorf("expected dim 2, got %d", table.Dim())
	}

	if _, err := LoadVectorsJSON(strings.NewReader(`["not", "a", "map"]`)); err == nil {
		t.Error("expected error for wrong shape")
	}
}

func TestLoadVectorsJSON_CollidingNamesAreDeterministic(t *testing.T) {
	// Both keys normalise to "Lightning Bolt"; the double-space key sorts first.
	const body = `{"Lightning Bolt": [1, 0], "Lightning  Bolt": [0, 1], "Opt": [1, 1]}`
	for i := 0; i < 20; i++ {
		table, err := LoadVectorsJSON(strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		if len(table) != 2 {
			t.Fatalf("expected 2 cards, got %d", len(table))
		}
		if v := table["Lightning Bolt"]; v[0] != 0 || v[1] != 1 {
			t.Fatalf("run %d: expected [0 1] from the first sorted key, got %v", i, v)
		}
	}
}

func TestLoadVectorsDB(t *testing.T) {
	d, err := db.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	ctx := context.Background()
	if err := d.PutEmbeddings(ctx, SignalTextEmbed, map[string][]float32{"Opt": {0.25, 0.75}}); err != nil {
		t.Fatal(err)
	}

	table, err := LoadVectorsDB(ctx, d, SignalTextEmbed)
	if err != nil {
		t.Fatal(err)
	}
	if v := table["Opt"]; len(v) != 2 || v[1] != 0.75 {
		t.Errorf("unexpected vector %v", v)
	}
	empty, err := LoadVectorsDB(ctx, d, SignalEmbed)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty embed space, got %v err=%v", empty, err)
	}
}
