package docstore

import (
	"context"
	"sync"
	"time"
)

type memoryDoc struct {
	content   []byte
	revision  string
	message   string
	updatedAt time.Time
}

// MemoryClient keeps documents in process memory. It honours the same
// revision contract as the remote backends.
type MemoryClient struct {
	mu   sync.RWMutex
	docs map[string]*memoryDoc
	now  func() time.Time
}

// NewMemoryClient returns an empty in-memory backend.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		docs: map[string]*memoryDoc{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (c *MemoryClient) Read(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewTransportError("read", path, err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{Content: append([]byte(nil), d.content...), Revision: d.revision}, nil
}

func (c *MemoryClient) Write(ctx context.Context, path string, content []byte, revision, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewTransportError("write", path, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, exists := c.docs[path]
	switch {
	case revision == "" && exists:
		return "", ErrConflict
	case revision != "" && !exists:
		return "", ErrConflict
	case exists && cur.revision != revision:
		return "", ErrConflict
	}
	rev := Revision(content)
	c.docs[path] = &memoryDoc{
		content:   append([]byte(nil), content...),
		revision:  rev,
		message:   message,
		updatedAt: c.now(),
	}
	return rev, nil
}

// LastMessage returns the commit message recorded by the last write to path.
func (c *MemoryClient) LastMessage(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.docs[path]; ok {
		return d.message
	}
	return ""
}

var _ Client = (*MemoryClient)(nil)
