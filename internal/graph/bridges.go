package graph

// ArticulationCard is a card whose removal disconnects part of the graph.
type ArticulationCard struct {
	Name   string `json:"name"`
	Degree int    `json:"degree"`
}

// BridgePair is an edge whose removal disconnects the graph.
type BridgePair struct {
	A        string `json:"a"`
	B        string `json:"b"`
	CountSet int    `json:"count_set"`
}

// BridgeReport contains bridge analysis results
type BridgeReport struct {
	ArticulationCards []ArticulationCard `json:"articulation_cards"`
	Bridges           []BridgePair       `json:"bridges"`
	APCount           int                `json:"ap_count"`
	BridgeCount       int                `json:"bridge_count"`
	// SingleDeckEdges counts pairs observed in exactly one deck.
	SingleDeckEdges int `json:"single_deck_edges"`
}

// ComputeBridges finds articulation cards and bridge pairs with an
// iterative Tarjan walk, capping each list at topN.
func ComputeBridges(g *Graph, topN int) *BridgeReport {
	rep := &BridgeReport{}
	for _, e := range g.Edges {
		if e.CountSet == 1 {
			rep.SingleDeckEdges++
		}
	}
	if len(g.Nodes) == 0 {
		return rep
	}

	names := g.NodeNames()
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	n := len(names)
	adj := make([][]int, n)
	for i, name := range names {
		for _, nb := range g.Neighbors(name) {
			adj[i] = append(adj[i], idx[nb])
		}
	}

	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isAP := make([]bool, n)
	var bridgePairs [][2]int
	counter := 1

	const noParent = -1

	type frame struct {
		node, parent, ni int
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		visited[start] = true
		disc[start] = counter
		low[start] = counter
		counter++

		stack := []frame{{start, noParent, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := top.node

			if top.ni < len(adj[node]) {
				child := adj[node][top.ni]
				top.ni++

				if child == top.parent {
					continue
				}
				if visited[child] {
					low[node] = min(low[node], disc[child])
					continue
				}

				visited[child] = true
				disc[child] = counter
				low[child] = counter
				counter++
				if node == start {
					rootChildren++
				}
				stack = append(stack, frame{child, node, 0})
				continue
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			pn := stack[len(stack)-1].node
			low[pn] = min(low[pn], low[node])
			if low[node] > disc[pn] {
				bridgePairs = append(bridgePairs, [2]int{pn, node})
			}
			if pn != start && low[node] >= disc[pn] {
				isAP[pn] = true
			}
		}

		if rootChildren >= 2 {
			isAP[start] = true
		}
	}

	for i := 0; i < n; i++ {
		if !isAP[i] {
			continue
		}
		rep.APCount++
		if len(rep.ArticulationCards) < topN {
			rep.ArticulationCards = append(rep.ArticulationCards, ArticulationCard{Name: names[i], Degree: len(adj[i])})
		}
	}

	rep.BridgeCount = len(bridgePairs)
	for _, p := range bridgePairs {
		if len(rep.Bridges) >= topN {
			break
		}
		k := NewPairKey(names[p[0]], names[p[1]])
		rep.Bridges = append(rep.Bridges, BridgePair{A: k.A, B: k.B, CountSet: g.Edges[k].CountSet})
	}
	return rep
}
