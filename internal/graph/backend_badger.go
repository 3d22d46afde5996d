package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"decksage/simgraph/internal/logging"
)

// BadgerBackend stores the graph in a badger directory, one key per node,
// edge and deck ID.
//
// Keys:
//
//	meta             -> metaRecord
//	node:<name>      -> nodeRecord
//	edge:<a>\x00<b>  -> edgeRecord
//	deck:<id>        -> empty
type BadgerBackend struct {
	dir string
}

func NewBadgerBackend(dir string) *BadgerBackend {
	return &BadgerBackend{dir: dir}
}

func (b *BadgerBackend) Kind() string     { return KindBadger }
func (b *BadgerBackend) Location() string { return b.dir }

var (
	badgerMetaKey    = []byte("meta")
	badgerNodePrefix = []byte("node:")
	badgerEdgePrefix = []byte("edge:")
	badgerDeckPrefix = []byte("deck:")
)

func edgeKey(k PairKey) []byte {
	key := make([]byte, 0, len(badgerEdgePrefix)+len(k.A)+1+len(k.B))
	key = append(key, badgerEdgePrefix...)
	key = append(key, k.A...)
	key = append(key, 0)
	return append(key, k.B...)
}

func prefixed(prefix []byte, s string) []byte {
	return append(append([]byte{}, prefix...), s...)
}

func (b *BadgerBackend) open() (*badger.DB, error) {
	opts := badger.DefaultOptions(b.dir).
		WithLogger(logging.NewBadgerLogger(logging.Component("badger")))
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", b.dir, err)
	}
	return db, nil
}

// Save replaces the directory's contents with g.
func (b *BadgerBackend) Save(ctx context.Context, g *Graph) (err error) {
	db, err := b.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	if err := db.DropAll(); err != nil {
		return fmt.Errorf("clearing badger: %w", err)
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()

	set := func(key []byte, v any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var val []byte
		if v != nil {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			val = data
		}
		return wb.Set(key, val)
	}

	for _, name := range g.NodeNames() {
		if err := set(prefixed(badgerNodePrefix, name), toNodeRecord(g.Nodes[name])); err != nil {
			return fmt.Errorf("writing node %q: %w", name, err)
		}
	}
	for _, k := range g.EdgeKeys() {
		if err := set(edgeKey(k), toEdgeRecord(g.Edges[k])); err != nil {
			return fmt.Errorf("writing edge %s: %w", k, err)
		}
	}
	for _, id := range g.SortedDeckIDs() {
		if err := set(prefixed(badgerDeckPrefix, id), nil); err != nil {
			return fmt.Errorf("writing deck %q: %w", id, err)
		}
	}
	// Meta last, so a partially written directory never looks complete.
	if err := set(badgerMetaKey, g.meta()); err != nil {
		return fmt.Errorf("writing meta: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing badger batch: %w", err)
	}
	return nil
}

func (b *BadgerBackend) Load(ctx context.Context) (g *Graph, err error) {
	if _, err := os.Stat(b.dir); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", b.dir, ErrNoGraph)
	}
	db, err := b.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := db.Close(); err == nil && cerr != nil {
			g, err = nil, cerr
		}
	}()

	g = New()
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerMetaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s: %w", b.dir, ErrNoGraph)
		}
		if err != nil {
			return err
		}
		var meta metaRecord
		if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &meta) }); err != nil {
			return fmt.Errorf("decoding meta: %w", err)
		}
		if err := g.applyMeta(meta); err != nil {
			return err
		}

		if err := scanPrefix(ctx, txn, badgerNodePrefix, func(_, v []byte) error {
			var r nodeRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			g.Nodes[r.Name] = r.node()
			return nil
		}); err != nil {
			return fmt.Errorf("loading nodes: %w", err)
		}

		if err := scanPrefix(ctx, txn, badgerEdgePrefix, func(_, v []byte) error {
			var r edgeRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			g.putEdge(r.edge())
			return nil
		}); err != nil {
			return fmt.Errorf("loading edges: %w", err)
		}

		return scanPrefix(ctx, txn, badgerDeckPrefix, func(k, _ []byte) error {
			g.DeckIDs[string(bytes.TrimPrefix(k, badgerDeckPrefix))] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if err := g.Check(); err != nil {
		return nil, fmt.Errorf("badger %s is inconsistent: %w", b.dir, err)
	}
	return g, nil
}

func scanPrefix(ctx context.Context, txn *badger.Txn, prefix []byte, fn func(k, v []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := it.Item()
		k := item.KeyCopy(nil)
		if err := item.Value(func(v []byte) error { return fn(k, v) }); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	return nil
}

func (b *BadgerBackend) Exists(ctx context.Context) (found bool, err error) {
	if _, err := os.Stat(b.dir); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	db, err := b.open()
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	err = db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerMetaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err == nil {
			found = true
		}
		return err
	})
	return found, err
}

func (b *BadgerBackend) Remove(ctx context.Context) error {
	return os.RemoveAll(b.dir)
}
