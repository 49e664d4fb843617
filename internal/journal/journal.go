// Package journal implements the append-only record files backing the
// template store and the audit log. Records are CBOR-encoded, passed through
// a Codec, and written length-prefixed so a partial trailing write cannot
// corrupt earlier records.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// ErrCorrupt reports a record that could not be framed or decoded.
var ErrCorrupt = errors.New("journal: corrupt record")

// A Journal appends CBOR records to a single file. The zero value of a nil
// *Journal is a valid no-op journal, used when persistence is disabled.
type Journal struct {
	mu    sync.Mutex
	path  string
	f     *os.File
	codec Codec
}

// Open creates or opens the journal at path. An empty path returns a nil
// journal whose methods are no-ops. A nil codec means plain CBOR.
func Open(path string, codec Codec) (*Journal, error) {
	if path == "" {
		return nil, nil
	}
	if codec == nil {
		codec = Plain{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &Journal{path: path, f: f, codec: codec}, nil
}

// Append marshals v, encodes it with the codec and appends it to the file.
func (j *Journal) Append(v interface{}) error {
	if j == nil {
		return nil
	}
	raw, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}
	payload, err := j.codec.Encode(raw)
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	var frame [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(frame[:], uint64(len(payload)))

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.f.Write(frame[:n]); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	if _, err := j.f.Write(payload); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Replay reads every record already on disk and hands the decoded CBOR bytes
// to fn in append order. Call it once, right after Open, before appending.
func (j *Journal) Replay(fn func(raw []byte) error) error {
	if j == nil {
		return nil
	}
	data, err := os.ReadFile(j.path)
	if err != nil {
		return fmt.Errorf("journal: read %s: %w", j.path, err)
	}
	for len(data) > 0 {
		size, n := binary.Uvarint(data)
		if n <= 0 || uint64(len(data)-n) < size {
			return fmt.Errorf("%w in %s", ErrCorrupt, j.path)
		}
		payload := data[n : n+int(size)]
		data = data[n+int(size):]
		raw, err := j.codec.Decode(payload)
		if err != nil {
			return fmt.Errorf("%w in %s: %v", ErrCorrupt, j.path, err)
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return nil
}

// Sync flushes the underlying file.
func (j *Journal) Sync() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Sync()
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ io.Closer = (*Journal)(nil)
