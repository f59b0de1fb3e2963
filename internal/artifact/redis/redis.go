// Package redis implements artifact.Store on a Redis server. Payloads live
// in plain string keys claimed with SETNX; a per-prefix set indexes the
// names so List stays cheap regardless of keyspace size.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vk/pipegridgo/internal/artifact"
)

// Config holds the connection settings for a Redis-backed store.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store implements artifact.Store over a go-redis client. Key layout:
//
//	dataset:<prefix>/<name>    payload bytes
//	encoding:<prefix>/<name>   encoding tag
//	index:<prefix>             set of names under the prefix
type Store struct {
	rdb *goredis.Client
}

// New creates a Redis store from the given config. The connection is lazy;
// the first operation surfaces connectivity errors.
func New(cfg Config) *Store {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{rdb: rdb}
}

func dataKey(ref artifact.Ref) string     { return "dataset:" + ref.String() }
func encodingKey(ref artifact.Ref) string { return "encoding:" + ref.String() }
func indexKey(prefix string) string       { return "index:" + prefix }

// Put claims the payload key with SETNX; the index and encoding keys follow
// only after the claim succeeds, so a losing producer leaves no trace.
func (s *Store) Put(ctx context.Context, ref artifact.Ref, payload []byte, enc artifact.Encoding) (artifact.Ref, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return artifact.Ref{}, err
	}

	claimed, err := s.rdb.SetNX(ctx, dataKey(ref), payload, 0).Result()
	if err != nil {
		return artifact.Ref{}, fmt.Errorf("put %q: %w", ref, err)
	}
	if !claimed {
		return artifact.Ref{}, fmt.Errorf("put %q: %w", ref, artifact.ErrDuplicateKey)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, encodingKey(ref), string(enc), 0)
	pipe.SAdd(ctx, indexKey(ref.Prefix), ref.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return artifact.Ref{}, fmt.Errorf("put %q: index: %w", ref, err)
	}
	return ref, nil
}

// Get fetches the payload and its encoding tag.
func (s *Store) Get(ctx context.Context, ref artifact.Ref) ([]byte, artifact.Encoding, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return nil, "", err
	}

	payload, err := s.rdb.Get(ctx, dataKey(ref)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, "", fmt.Errorf("get %q: %w", ref, artifact.ErrNotFound)
		}
		return nil, "", fmt.Errorf("get %q: %w", ref, err)
	}

	enc := artifact.EncodingOpaque
	if tag, err := s.rdb.Get(ctx, encodingKey(ref)).Result(); err == nil && tag != "" {
		enc = artifact.Encoding(tag)
	}
	return payload, enc, nil
}

// List reads the per-prefix index set and sorts it.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = artifact.CleanPrefix(prefix)

	names, err := s.rdb.SMembers(ctx, indexKey(prefix)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	sort.Strings(names)
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Exists checks the payload key.
func (s *Store) Exists(ctx context.Context, ref artifact.Ref) (bool, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, dataKey(ref)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", ref, err)
	}
	return n > 0, nil
}

// Size returns the payload length via STRLEN.
func (s *Store) Size(ctx context.Context, ref artifact.Ref) (int64, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return 0, err
	}

	n, err := s.rdb.Exists(ctx, dataKey(ref)).Result()
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", ref, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("size %q: %w", ref, artifact.ErrNotFound)
	}

	size, err := s.rdb.StrLen(ctx, dataKey(ref)).Result()
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", ref, err)
	}
	return size, nil
}

// Close releases the client's connection pool.
func (s *Store) Close() error { return s.rdb.Close() }

// compile-time check
var _ artifact.Store = (*Store)(nil)
