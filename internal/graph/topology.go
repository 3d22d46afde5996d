package graph

import "sort"

// HubCard is a card co-occurring with many distinct cards.
type HubCard struct {
	Name   string `json:"name"`
	Degree int    `json:"degree"`
	Decks  int    `json:"decks"`
}

// DegreeBucket counts cards whose degree falls in Label.
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport summarises the connected structure of the card graph.
type TopologyReport struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalEdges        int            `json:"total_edges"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	OrphanCount       int            `json:"orphan_count"`
	Orphans           []string       `json:"orphans"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	AvgDegree         float64        `json:"avg_degree"`
	MaxDegree         int            `json:"max_degree"`
	Hubs              []HubCard      `json:"hubs"`
}

// ComputeTopology reports components, orphans, the degree histogram and hub
// cards (degree above hubThreshold). Orphan and hub lists keep topN entries.
func ComputeTopology(g *Graph, hubThreshold, topN int) *TopologyReport {
	totalNodes := len(g.Nodes)
	if totalNodes == 0 {
		return &TopologyReport{DegreeHistogram: defaultHistogram()}
	}

	names := g.NodeNames()
	uf := newUnionFind(names)
	for k := range g.Edges {
		uf.union(k.A, k.B)
	}
	sizes := uf.componentSizes()
	largest, smallest := 0, totalNodes
	for _, s := range sizes {
		largest = max(largest, s)
		smallest = min(smallest, s)
	}

	// A card only lands in the graph with a co-occurring card, so orphans
	// appear only in graphs rebuilt from partial data or single-card decks.
	var orphans []string
	buckets := [7]int{}
	var hubs []HubCard
	degreeSum, maxDegree := 0, 0
	for _, name := range names {
		degree := g.Degree(name)
		degreeSum += degree
		maxDegree = max(maxDegree, degree)
		buckets[degreeBucket(degree)]++
		if degree == 0 {
			orphans = append(orphans, name)
		}
		if degree > hubThreshold {
			hubs = append(hubs, HubCard{Name: name, Degree: degree, Decks: g.Nodes[name].Decks})
		}
	}
	orphanCount := len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}

	histogram := defaultHistogram()
	for i := range histogram {
		histogram[i].Count = buckets[i]
	}

	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}

	return &TopologyReport{
		TotalNodes:        totalNodes,
		TotalEdges:        len(g.Edges),
		NumComponents:     len(sizes),
		LargestComponent:  largest,
		SmallestComponent: smallest,
		OrphanCount:       orphanCount,
		Orphans:           orphans,
		DegreeHistogram:   histogram,
		AvgDegree:         float64(degreeSum) / float64(totalNodes),
		MaxDegree:         maxDegree,
		Hubs:              hubs,
	}
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
