// Package document provides the JSON document payload served by the cache
// and the content hasher that derives its checksum and secondary-index keys.
package document

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/gjson"
)

// Document is a raw JSON value held by the cache.
type Document json.RawMessage

// Parse validates data as JSON and returns it in compact form.
func Parse(data []byte) (Document, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return Document(buf.Bytes()), nil
}

// MarshalJSON returns the document as is.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON stores a compact copy of data.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Get returns the value at a gjson path.
func (d Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d, path)
}

// Hasher derives cache identity for documents.
// Values found at IndexPaths become the document's secondary-index keys.
type Hasher struct {
	IndexPaths []string
}

// Checksum returns the hex xxhash of the document's compact form.
func (h Hasher) Checksum(d Document) string {
	return strconv.FormatUint(xxhash.Sum64(compact(d)), 16)
}

// Size returns the compact length of the document in bytes.
func (h Hasher) Size(d Document) int64 {
	return int64(len(compact(d)))
}

// IndexKeys returns one key per scalar value found at each index path.
// Array values contribute one key per element.
func (h Hasher) IndexKeys(d Document) []uint64 {
	var keys []uint64
	for _, path := range h.IndexPaths {
		for _, value := range values(d.Get(path)) {
			keys = append(keys, Key(path, value))
		}
	}
	return keys
}

// Key returns the index key for value found at path.
// The path is length-prefixed so no (path, value) split can alias another.
func Key(path, value string) uint64 {
	d := xxhash.New()
	_, _ = d.Write(binary.AppendUvarint(nil, uint64(len(path))))
	_, _ = d.WriteString(path)
	_, _ = d.WriteString(value)
	return d.Sum64()
}

// Match returns a predicate selecting documents holding value at path.
// It pairs with Key(path, value) for indexed filtering.
func Match(path, value string) func(Document) bool {
	return func(d Document) bool {
		for _, v := range values(d.Get(path)) {
			if v == value {
				return true
			}
		}
		return false
	}
}

func values(r gjson.Result) []string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	if r.IsArray() {
		var out []string
		for _, el := range r.Array() {
			if el.IsArray() || el.IsObject() || el.Type == gjson.Null {
				continue
			}
			out = append(out, el.String())
		}
		return out
	}
	if r.IsObject() {
		return nil
	}
	return []string{r.String()}
}

// compact returns d without insignificant whitespace, or d itself if it is not valid JSON.
func compact(d Document) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, d); err != nil {
		return d
	}
	return buf.Bytes()
}
