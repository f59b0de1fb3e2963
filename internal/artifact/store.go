package artifact

import (
	"context"
	"path"
)

// Store is the contract every artifact backend implements. Datasets are
// immutable: Put uses per-key insertion compare-and-set semantics and rejects
// a second write to the same (prefix, name) with ErrDuplicateKey, so
// independent producers never contend on a shared lock.
//
// Visibility is sequentially consistent within a process: a dataset written
// by Put is observable by every List/Get issued after Put returns. Payloads
// handed out by Get are private copies; callers may not mutate stored state
// through them.
type Store interface {
	// Put stores a payload under ref and returns the canonicalized ref.
	// Fails with ErrDuplicateKey if the key already holds a dataset.
	Put(ctx context.Context, ref Ref, payload []byte, enc Encoding) (Ref, error)

	// Get returns the payload and encoding stored under ref, or ErrNotFound.
	Get(ctx context.Context, ref Ref) ([]byte, Encoding, error)

	// List returns the names stored directly under prefix, in lexical order.
	// A prefix with no entries yields an empty slice, not an error.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether a dataset is stored under ref.
	Exists(ctx context.Context, ref Ref) (bool, error)

	// Size returns the payload length in bytes, or ErrNotFound.
	Size(ctx context.Context, ref Ref) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Scoped returns a view of base that places every ref under scope, letting a
// run isolate its datasets from concurrent runs sharing one backend. Closing
// the view is a no-op; the owner of the base store closes it.
func Scoped(base Store, scope string) Store {
	return &scopedStore{base: base, scope: CleanPrefix(scope)}
}

type scopedStore struct {
	base  Store
	scope string
}

func (s *scopedStore) rebase(ref Ref) Ref {
	return Ref{Prefix: path.Join(s.scope, ref.Prefix), Name: ref.Name}
}

func (s *scopedStore) Put(ctx context.Context, ref Ref, payload []byte, enc Encoding) (Ref, error) {
	stored, err := s.base.Put(ctx, s.rebase(ref), payload, enc)
	if err != nil {
		return Ref{}, err
	}
	// Hand the caller's view of the ref back, not the rebased one.
	stored.Prefix = CleanPrefix(ref.Prefix)
	return stored, nil
}

func (s *scopedStore) Get(ctx context.Context, ref Ref) ([]byte, Encoding, error) {
	return s.base.Get(ctx, s.rebase(ref))
}

func (s *scopedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.base.List(ctx, path.Join(s.scope, CleanPrefix(prefix)))
}

func (s *scopedStore) Exists(ctx context.Context, ref Ref) (bool, error) {
	return s.base.Exists(ctx, s.rebase(ref))
}

func (s *scopedStore) Size(ctx context.Context, ref Ref) (int64, error) {
	return s.base.Size(ctx, s.rebase(ref))
}

func (s *scopedStore) Close() error { return nil }
