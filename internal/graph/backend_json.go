package graph

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// JSONBackend stores the graph as one flat JSON document.
type JSONBackend struct {
	path string
}

func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{path: path}
}

func (b *JSONBackend) Kind() string     { return KindJSON }
func (b *JSONBackend) Location() string { return b.path }

type jsonSnapshot struct {
	metaRecord
	DeckIDs []string     `json:"deck_ids"`
	Nodes   []nodeRecord `json:"nodes"`
	Edges   []edgeRecord `json:"edges"`
}

// Save writes to a temporary sibling and renames it into place.
func (b *JSONBackend) Save(ctx context.Context, g *Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := jsonSnapshot{
		metaRecord: g.meta(),
		DeckIDs:    g.SortedDeckIDs(),
		Nodes:      make([]nodeRecord, 0, len(g.Nodes)),
		Edges:      make([]edgeRecord, 0, len(g.Edges)),
	}
	for _, name := range g.NodeNames() {
		snap.Nodes = append(snap.Nodes, toNodeRecord(g.Nodes[name]))
	}
	for _, k := range g.EdgeKeys() {
		snap.Edges = append(snap.Edges, toEdgeRecord(g.Edges[k]))
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replacing %s: %w", b.path, err)
	}
	return nil
}

func (b *JSONBackend) Load(ctx context.Context) (*Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", b.path, ErrNoGraph)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap jsonSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", b.path, err)
	}

	g := New()
	if err := g.applyMeta(snap.metaRecord); err != nil {
		return nil, err
	}
	for _, id := range snap.DeckIDs {
		g.DeckIDs[id] = struct{}{}
	}
	for _, r := range snap.Nodes {
		g.Nodes[r.Name] = r.node()
	}
	for _, r := range snap.Edges {
		g.putEdge(r.edge())
	}
	if err := g.Check(); err != nil {
		return nil, fmt.Errorf("snapshot %s is inconsistent: %w", b.path, err)
	}
	return g, nil
}

func (b *JSONBackend) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (b *JSONBackend) Remove(ctx context.Context) error {
	err := os.Remove(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
