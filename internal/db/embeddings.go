package db

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// bytesToEmbedding converts a little-endian byte slice to []float32.
// A trailing partial float decodes as 0.
func bytesToEmbedding(data []byte) []float32 {
	n := len(data) / 4
	if len(data)%4 != 0 {
		n++ // include partial chunk as 0.0
	}
	result := make([]float32, n)
	for i := 0; i < len(data)/4; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		result[i] = math.Float32frombits(bits)
	}
	return result
}

// embeddingToBytes is the inverse of bytesToEmbedding.
func embeddingToBytes(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// PutEmbeddings upserts vectors for one embedding space ("embed",
// "text_embed", ...).
func (d *DB) PutEmbeddings(ctx context.Context, space string, vectors map[string][]float32) (err error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (name, space, vector) VALUES (?, ?, ?)
		ON CONFLICT(name, space) DO UPDATE SET vector = excluded.vector
	`)
	if err != nil {
		return fmt.Errorf("preparing embedding upsert: %w", err)
	}
	defer stmt.Close()

	for name, vec := range vectors {
		if _, err = stmt.ExecContext(ctx, name, space, embeddingToBytes(vec)); err != nil {
			return fmt.Errorf("writing embedding %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// Embeddings returns every vector stored for a space.
func (d *DB) Embeddings(ctx context.Context, space string) (map[string][]float32, error) {
	rows, err := d.conn.QueryContext(ctx, "SELECT name, vector FROM embeddings WHERE space = ?", space)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]float32)
	for rows.Next() {
		var name string
		var data []byte
		if err := rows.Scan(&name, &data); err != nil {
			return nil, err
		}
		result[name] = bytesToEmbedding(data)
	}
	return result, rows.Err()
}

// CountEmbeddings returns the number of vectors stored for a space.
func (d *DB) CountEmbeddings(ctx context.Context, space string) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE space = ?", space).Scan(&count)
	return count, err
}
