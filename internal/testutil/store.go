package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pipegridgo/internal/artifact"
)

// Ref parses a fully-qualified dataset name, failing the test on a bad one.
func Ref(t *testing.T, fq string) artifact.Ref {
	t.Helper()
	ref, err := artifact.ParseRef(fq)
	require.NoError(t, err)
	return ref
}

// SeedStore writes each payload under its fully-qualified name with the
// opaque encoding, failing the test on any store error.
func SeedStore(t *testing.T, ctx context.Context, store artifact.Store, payloads map[string]string) {
	t.Helper()
	for fq, payload := range payloads {
		_, err := store.Put(ctx, Ref(t, fq), []byte(payload), artifact.EncodingOpaque)
		require.NoError(t, err)
	}
}

// MustGet fetches a payload by fully-qualified name.
func MustGet(t *testing.T, ctx context.Context, store artifact.Store, fq string) []byte {
	t.Helper()
	payload, _, err := store.Get(ctx, Ref(t, fq))
	require.NoError(t, err)
	return payload
}
