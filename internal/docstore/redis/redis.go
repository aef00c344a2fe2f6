// Package redis stores documents as Redis hashes. Writes run inside
// WATCH/MULTI so that a writer racing another one from the same revision
// has its transaction aborted instead of overwriting.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/Quizbank/internal/docstore"
)

const (
	fieldContent   = "content"
	fieldRevision  = "rev"
	fieldMessage   = "message"
	fieldUpdatedAt = "updated_at"
)

var errStale = errors.New("stale revision")

// Client wraps a Redis client and a key prefix.
type Client struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
	now    func() time.Time
}

// NewClient connects lazily to addr; documents live under prefix+path.
func NewClient(addr, password string, db int, prefix string, logger *slog.Logger) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rdb:    rdb,
		prefix: prefix,
		log:    logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// Close releases the connection pool.
func (c *Client) Close() error { return c.rdb.Close() }

func (c *Client) key(path string) string { return c.prefix + path }

func (c *Client) Read(ctx context.Context, path string) (*docstore.Document, error) {
	fields, err := c.rdb.HGetAll(ctx, c.key(path)).Result()
	if err != nil {
		return nil, docstore.NewTransportError("read", path, err)
	}
	if len(fields) == 0 {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Document{Content: []byte(fields[fieldContent]), Revision: fields[fieldRevision]}, nil
}

func (c *Client) Write(ctx context.Context, path string, content []byte, revision, message string) (string, error) {
	key := c.key(path)
	next := docstore.Revision(content)
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, fieldRevision).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if revision != "" {
				return errStale
			}
		case err != nil:
			return err
		case cur != revision:
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]any{
				fieldContent:   content,
				fieldRevision:  next,
				fieldMessage:   message,
				fieldUpdatedAt: c.now().Format(time.RFC3339),
			})
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.Warn("redis docstore: write rejected", "path", path, "revision", revision)
		return "", docstore.ErrConflict
	default:
		return "", docstore.NewTransportError("write", path, err)
	}
}

var _ docstore.Client = (*Client)(nil)
