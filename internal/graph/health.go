package graph

import (
	"math"
	"sort"
	"time"
)

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Components   float64 `json:"components"`
	Freshness    float64 `json:"freshness"`
	Fragility    float64 `json:"fragility"`
}

// EdgeWeightStats summarises the co-occurrence counts.
type EdgeWeightStats struct {
	AvgCountSet      float64   `json:"avg_count_set"`
	MaxCountSet      int       `json:"max_count_set"`
	AvgCountMultiset float64   `json:"avg_count_multiset"`
	MaxCountMultiset int       `json:"max_count_multiset"`
	Strongest        []EdgeRow `json:"strongest"`
}

// EdgeRow is an edge flattened for reports.
type EdgeRow struct {
	A             string `json:"a"`
	B             string `json:"b"`
	CountSet      int    `json:"count_set"`
	CountMultiset int    `json:"count_multiset"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	TotalDecks      int              `json:"total_decks"`
	LastUpdate      time.Time        `json:"last_update"`
	HealthScore     float64          `json:"health_score"`
	HealthBreakdown HealthBreakdown  `json:"health_breakdown"`
	Topology        *TopologyReport  `json:"topology"`
	Weights         EdgeWeightStats  `json:"weights"`
	Staleness       *StalenessReport `json:"staleness"`
	Bridges         *BridgeReport    `json:"bridges"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
	StaleDays    int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 50,
		TopN:         20,
		StaleDays:    90,
	}
}

// Analyze runs all analyses and computes a composite health score
func Analyze(g *Graph, config *AnalyzerConfig) *AnalysisReport {
	topology := ComputeTopology(g, config.HubThreshold, config.TopN)
	staleness := ComputeStaleness(g, config.StaleDays, config.TopN)
	bridges := ComputeBridges(g, config.TopN)

	total := float64(topology.TotalNodes)

	var connectivity, components, freshness, fragility float64
	if total > 0 {
		connectivity = clamp(1.0-math.Min(float64(topology.OrphanCount)/total, 0.2)*5.0, 0, 1)
		freshness = clamp(1.0-math.Min(float64(staleness.StaleCardCount)/total, 0.5)*2.0, 0, 1)
		fragility = clamp(1.0-math.Min(float64(bridges.APCount)/total, 0.05)*20.0, 0, 1)
	}
	if topology.NumComponents > 0 {
		components = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}

	healthScore := 0.30*connectivity + 0.25*components + 0.25*freshness + 0.20*fragility

	return &AnalysisReport{
		TotalDecks:  g.TotalDecks,
		LastUpdate:  g.LastUpdate,
		HealthScore: healthScore,
		HealthBreakdown: HealthBreakdown{
			Connectivity: connectivity,
			Components:   components,
			Freshness:    freshness,
			Fragility:    fragility,
		},
		Topology:  topology,
		Weights:   computeWeights(g, config.TopN),
		Staleness: staleness,
		Bridges:   bridges,
	}
}

func computeWeights(g *Graph, topN int) EdgeWeightStats {
	var ws EdgeWeightStats
	if len(g.Edges) == 0 {
		return ws
	}
	rows := make([]EdgeRow, 0, len(g.Edges))
	sumSet, sumMulti := 0, 0
	for k, e := range g.Edges {
		sumSet += e.CountSet
		sumMulti += e.CountMultiset
		ws.MaxCountSet = max(ws.MaxCountSet, e.CountSet)
		ws.MaxCountMultiset = max(ws.MaxCountMultiset, e.CountMultiset)
		rows = append(rows, EdgeRow{A: k.A, B: k.B, CountSet: e.CountSet, CountMultiset: e.CountMultiset})
	}
	ws.AvgCountSet = float64(sumSet) / float64(len(g.Edges))
	ws.AvgCountMultiset = float64(sumMulti) / float64(len(g.Edges))

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CountSet != rows[j].CountSet {
			return rows[i].CountSet > rows[j].CountSet
		}
		if rows[i].A != rows[j].A {
			return rows[i].A < rows[j].A
		}
		return rows[i].B < rows[j].B
	})
	if len(rows) > topN {
		rows = rows[:topN]
	}
	ws.Strongest = rows
	return ws
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
