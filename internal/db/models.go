package db

// Node represents a row in the nodes table
type Node struct {
	Name      string
	Game      string
	Decks     int
	FirstSeen int64 // Unix millis
	LastSeen  int64 // Unix millis
}

// Edge represents a row in the edges table. Card1 <= Card2 always holds.
type Edge struct {
	Card1         string
	Card2         string
	CountSet      int
	CountMultiset int
}

// Meta keys stored alongside the graph.
const (
	MetaLastUpdate = "last_update"
	MetaTotalDecks = "total_decks"
)

// GraphRows is the complete persisted form of a graph.
type GraphRows struct {
	Nodes   []Node
	Edges   []Edge
	DeckIDs []string
	Meta    map[string]string
}
