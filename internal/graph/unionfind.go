package graph

// unionFind groups cards into connected components with path compression
// and union by rank.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(names []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(names)),
		rank:   make(map[string]int, len(names)),
	}
	for _, n := range names {
		uf.parent[n] = n
	}
	return uf
}

func (uf *unionFind) find(name string) string {
	root := name
	for {
		p, ok := uf.parent[root]
		if !ok || p == root {
			break
		}
		root = p
	}
	// Compress the walked path.
	for name != root {
		next := uf.parent[name]
		uf.parent[name] = root
		name = next
	}
	return root
}

// union merges the components of a and b, reporting whether they differed.
func (uf *unionFind) union(a, b string) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	return true
}

// componentSizes returns the size of every component.
func (uf *unionFind) componentSizes() []int {
	counts := make(map[string]int)
	for n := range uf.parent {
		counts[uf.find(n)]++
	}
	sizes := make([]int, 0, len(counts))
	for _, c := range counts {
		sizes = append(sizes, c)
	}
	return sizes
}
