// Package memory provides an ephemeral, thread-safe, in-memory
// implementation of the artifact.Store interface.
//
// It is the default backend for tests and single-process pipeline runs:
// created fresh per run, nothing survives the process. A plain RWMutex over
// a map-of-maps is enough here because the write pattern is insert-once per
// key; there is no update contention to optimize for.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/pipegridgo/internal/artifact"
)

// Store is an in-memory artifact.Store keyed by prefix, then name.
type Store struct {
	mu       sync.RWMutex
	prefixes map[string]map[string]entry
}

type entry struct {
	payload  []byte
	encoding artifact.Encoding
}

// New creates a new, empty in-memory dataset store.
func New() *Store {
	return &Store{prefixes: make(map[string]map[string]entry)}
}

// Put stores a copy of payload under ref, rejecting duplicates.
func (s *Store) Put(ctx context.Context, ref artifact.Ref, payload []byte, enc artifact.Encoding) (artifact.Ref, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return artifact.Ref{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names, ok := s.prefixes[ref.Prefix]
	if !ok {
		names = make(map[string]entry)
		s.prefixes[ref.Prefix] = names
	}
	if _, exists := names[ref.Name]; exists {
		return artifact.Ref{}, fmt.Errorf("put %q: %w", ref, artifact.ErrDuplicateKey)
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)
	names[ref.Name] = entry{payload: stored, encoding: enc}
	return ref, nil
}

// Get returns a private copy of the payload stored under ref.
func (s *Store) Get(ctx context.Context, ref artifact.Ref) ([]byte, artifact.Encoding, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.prefixes[ref.Prefix][ref.Name]
	if !ok {
		return nil, "", fmt.Errorf("get %q: %w", ref, artifact.ErrNotFound)
	}

	out := make([]byte, len(e.payload))
	copy(out, e.payload)
	return out, e.encoding, nil
}

// List returns the names stored directly under prefix, lexically ordered.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = artifact.CleanPrefix(prefix)

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.prefixes[prefix]))
	for name := range s.prefixes[prefix] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a dataset is stored under ref.
func (s *Store) Exists(ctx context.Context, ref artifact.Ref) (bool, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.prefixes[ref.Prefix][ref.Name]
	return ok, nil
}

// Size returns the stored payload length in bytes.
func (s *Store) Size(ctx context.Context, ref artifact.Ref) (int64, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.prefixes[ref.Prefix][ref.Name]
	if !ok {
		return 0, fmt.Errorf("size %q: %w", ref, artifact.ErrNotFound)
	}
	return int64(len(e.payload)), nil
}

// Close is a no-op for the in-memory backend.
func (s *Store) Close() error { return nil }

// compile-time check
var _ artifact.Store = (*Store)(nil)
