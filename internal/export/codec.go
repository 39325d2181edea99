package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"

	"objcache/internal/cache"
)

// SnapshotVersion is the current export format version.
const SnapshotVersion = 1

// brotliMagic prefixes compressed exports. Plain exports are JSON objects and start with '{'.
var brotliMagic = []byte("OCB\x01")

// Snapshot is the transfer shape of one tenant cache.
type Snapshot[T any] struct {
	Version    int              `json:"version"`
	Model      string           `json:"model"`
	Tenant     string           `json:"tenant"`
	ExportedAt time.Time        `json:"exported_at"`
	Metadata   cache.Metadata   `json:"metadata"`
	Entries    []cache.Entry[T] `json:"entries"`
}

// Encode serializes snap as JSON, brotli-compressed when compress is set.
func Encode[T any](snap *Snapshot[T], compress bool) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot is nil")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if !compress {
		return raw, nil
	}

	var buf bytes.Buffer
	buf.Write(brotliMagic)
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses data produced by Encode, compressed or not.
func Decode[T any](data []byte) (*Snapshot[T], error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty snapshot payload")
	}
	if bytes.HasPrefix(data, brotliMagic) {
		raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data[len(brotliMagic):])))
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		data = raw
	}

	var snap Snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}
