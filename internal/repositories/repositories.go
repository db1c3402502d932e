// package repositories provides the persistence layer for sync results.
//
// FaceRepository stores per-file face results and cluster assignments;
// LibraryRepository stores the versioned ML library blob. Both operate over
// the SQLite schema created by shared.RunMigrations.
package repositories

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// encodeEmbedding packs a float32 vector as little-endian bytes for BLOB
// storage.
func encodeEmbedding(vec []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("failed to encode embedding: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeEmbedding unpacks a BLOB written by encodeEmbedding.
func decodeEmbedding(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &vec); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vec, nil
}
