// Package docstore reads and writes whole JSON documents held by an external
// store. Every document carries an opaque revision token and every write is a
// compare-and-swap on that token.
package docstore

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound is returned by Read when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrConflict is returned by Write when the supplied revision is stale,
	// or when a create targets a document that already exists.
	ErrConflict = errors.New("docstore: revision conflict")
)

// TransportError wraps any backend failure that is neither a missing
// document nor a revision conflict.
type TransportError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("docstore: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError builds a TransportError for op on path.
func NewTransportError(op, path string, err error) error {
	return &TransportError{Op: op, Path: path, Err: err}
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Document is the raw content of one document and the revision it was read at.
type Document struct {
	Content  []byte
	Revision string
}

// Client is the contract every backend implements.
//
// Write with an empty revision creates the document and fails with
// ErrConflict if it already exists. Write with a revision replaces the whole
// document only if that revision is still current.
type Client interface {
	Read(ctx context.Context, path string) (*Document, error)
	Write(ctx context.Context, path string, content []byte, revision, message string) (string, error)
}

// Revision returns the git blob SHA-1 of content. Backends without a native
// version tag use it so that a revision always names one exact byte content.
func Revision(content []byte) string {
	h := sha1.New()
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Encode renders v the way documents are stored: two-space indented JSON.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
