package graph

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"decksage/simgraph/internal/deck"
)

// PairsHeader is the column layout of the flat pairs table.
var PairsHeader = []string{"NAME_1", "NAME_2", "COUNT_SET", "COUNT_MULTISET"}

// WritePairs writes one row per edge, sorted by key.
func WritePairs(w io.Writer, g *Graph) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PairsHeader); err != nil {
		return err
	}
	for _, k := range g.EdgeKeys() {
		e := g.Edges[k]
		row := []string{k.A, k.B, strconv.Itoa(e.CountSet), strconv.Itoa(e.CountMultiset)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing pair %s: %w", k, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// PairsReport counts what ReadPairs accepted and rejected.
type PairsReport struct {
	Rows    int
	Merged  int // rows folded into an edge already seen, in either order
	Skipped int
	Reasons map[string]int
}

func (r *PairsReport) skip(reason string) {
	r.Skipped++
	r.Reasons[reason]++
}

// ReadPairs rebuilds a graph from a pairs table. Names are normalised and
// pair order does not matter. Malformed rows are skipped and counted. Node
// deck counts are unknown in this format and left at zero.
func ReadPairs(r io.Reader) (*Graph, *PairsReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	rep := &PairsReport{Reasons: make(map[string]int)}
	g := New()

	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			rep.Rows++
			rep.skip("unparseable row")
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading pairs: %w", err)
		}
		if header {
			header = false
			if len(rec) > 0 && rec[0] == PairsHeader[0] {
				continue
			}
		}
		rep.Rows++

		if len(rec) != len(PairsHeader) {
			rep.skip("wrong field count")
			continue
		}
		a, b := deck.NormalizeName(rec[0]), deck.NormalizeName(rec[1])
		if a == "" || b == "" {
			rep.skip("empty card name")
			continue
		}
		if a == b {
			rep.skip("self pair")
			continue
		}
		set, err1 := strconv.Atoi(rec[2])
		multi, err2 := strconv.Atoi(rec[3])
		if err1 != nil || err2 != nil {
			rep.skip("non-integer count")
			continue
		}
		if set < 1 || multi < set {
			rep.skip("invalid counts")
			continue
		}

		for _, name := range []string{a, b} {
			if _, ok := g.Nodes[name]; !ok {
				g.Nodes[name] = &Node{Name: name}
			}
		}
		if !g.addPair(a, b, set, multi) {
			rep.Merged++
		}
	}
	return g, rep, nil
}
