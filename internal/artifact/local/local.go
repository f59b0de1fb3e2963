// Package local implements artifact.Store on the local filesystem. It is the
// backend behind the datacli tool, so datasets written by a pipeline run are
// inspectable with ordinary shell tools afterwards.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/pipegridgo/internal/artifact"
)

// Store lays datasets out under a base directory:
//
//	<base>/objects/<prefix>/<name>   payload bytes
//	<base>/meta/<prefix>/<name>      encoding tag
//
// The payload file is created with O_EXCL, which is the per-key
// compare-and-set: a second producer for the same ref loses the race at the
// filesystem and gets ErrDuplicateKey.
type Store struct {
	base string
}

// New creates a filesystem store rooted at baseDir, creating it if needed.
func New(baseDir string) (*Store, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("artifact: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("artifact: create base directory: %w", err)
	}
	return &Store{base: abs}, nil
}

func (s *Store) objectPath(ref artifact.Ref) string {
	return filepath.Join(s.base, "objects", filepath.FromSlash(ref.Prefix), ref.Name)
}

func (s *Store) metaPath(ref artifact.Ref) string {
	return filepath.Join(s.base, "meta", filepath.FromSlash(ref.Prefix), ref.Name)
}

// Put writes the payload file with O_EXCL and records the encoding beside it.
func (s *Store) Put(ctx context.Context, ref artifact.Ref, payload []byte, enc artifact.Encoding) (artifact.Ref, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return artifact.Ref{}, err
	}

	objPath := s.objectPath(ref)
	if err := os.MkdirAll(filepath.Dir(objPath), 0o750); err != nil {
		return artifact.Ref{}, fmt.Errorf("put %q: create directory: %w", ref, err)
	}

	f, err := os.OpenFile(objPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return artifact.Ref{}, fmt.Errorf("put %q: %w", ref, artifact.ErrDuplicateKey)
		}
		return artifact.Ref{}, fmt.Errorf("put %q: create file: %w", ref, err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return artifact.Ref{}, fmt.Errorf("put %q: write payload: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		return artifact.Ref{}, fmt.Errorf("put %q: close payload: %w", ref, err)
	}

	metaPath := s.metaPath(ref)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0o750); err != nil {
		return artifact.Ref{}, fmt.Errorf("put %q: create meta directory: %w", ref, err)
	}
	if err := os.WriteFile(metaPath, []byte(enc), 0o644); err != nil {
		return artifact.Ref{}, fmt.Errorf("put %q: write meta: %w", ref, err)
	}

	return ref, nil
}

// Get reads the payload and its encoding tag. A missing meta file degrades
// to EncodingOpaque so trees written by other tools remain readable.
func (s *Store) Get(ctx context.Context, ref artifact.Ref) ([]byte, artifact.Encoding, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return nil, "", err
	}

	payload, err := os.ReadFile(s.objectPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("get %q: %w", ref, artifact.ErrNotFound)
		}
		return nil, "", fmt.Errorf("get %q: read payload: %w", ref, err)
	}

	enc := artifact.EncodingOpaque
	if raw, err := os.ReadFile(s.metaPath(ref)); err == nil {
		enc = artifact.Encoding(strings.TrimSpace(string(raw)))
	}
	return payload, enc, nil
}

// List returns the file names directly under the prefix directory.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = artifact.CleanPrefix(prefix)
	dir := filepath.Join(s.base, "objects", filepath.FromSlash(prefix))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			// Subdirectories are nested prefixes, not names under this one.
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether the payload file is present.
func (s *Store) Exists(ctx context.Context, ref artifact.Ref) (bool, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(s.objectPath(ref)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("exists %q: %w", ref, err)
	}
	return true, nil
}

// Size returns the payload file length in bytes.
func (s *Store) Size(ctx context.Context, ref artifact.Ref) (int64, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(s.objectPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("size %q: %w", ref, artifact.ErrNotFound)
		}
		return 0, fmt.Errorf("size %q: %w", ref, err)
	}
	return info.Size(), nil
}

// Close is a no-op for the filesystem backend.
func (s *Store) Close() error { return nil }

// compile-time check
var _ artifact.Store = (*Store)(nil)
