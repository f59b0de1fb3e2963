package artifact

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Sentinel errors shared by every Store implementation. Callers match them
// with errors.Is after backends wrap them with key context.
var (
	// ErrDuplicateKey is returned by Put when the (prefix, name) pair already
	// holds a dataset. Datasets are immutable for the remainder of a run.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned by Get and Size when no dataset exists under
	// the requested (prefix, name) pair.
	ErrNotFound = errors.New("not found")
)

// Encoding tags how a dataset payload should be interpreted by consumers.
// The store itself never inspects payloads; the tag travels alongside the
// bytes so a consumer can pick the right codec.
type Encoding string

const (
	// EncodingOpaque marks a payload with no declared structure.
	EncodingOpaque Encoding = "opaque"
	// EncodingJSON marks a structured-data payload.
	EncodingJSON Encoding = "json"
	// EncodingCSV marks a tabular payload.
	EncodingCSV Encoding = "csv"
)

// Ref identifies a dataset by its hierarchical prefix and its name. The
// prefix is a slash-separated path ("results", "wordcount/chunks"); the name
// is unique within its prefix and never contains a slash.
type Ref struct {
	Prefix string
	Name   string
}

// String returns the fully-qualified dataset name, e.g. "results/summary".
func (r Ref) String() string {
	if r.Prefix == "" {
		return r.Name
	}
	return r.Prefix + "/" + r.Name
}

// ParseRef splits a fully-qualified dataset name into a Ref. The final path
// segment becomes the name, everything before it the prefix.
func ParseRef(fq string) (Ref, error) {
	cleaned := CleanPrefix(fq)
	if cleaned == "" {
		return Ref{}, fmt.Errorf("invalid dataset name %q: empty", fq)
	}
	dir, name := path.Split(cleaned)
	return Ref{Prefix: strings.TrimSuffix(dir, "/"), Name: name}, nil
}

// Normalize cleans the prefix path and validates the ref. Backends call it
// before touching their keyspace so every backend agrees on key identity.
func (r Ref) Normalize() (Ref, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return Ref{}, fmt.Errorf("invalid dataset ref %q: empty name", r)
	}
	if strings.Contains(name, "/") {
		return Ref{}, fmt.Errorf("invalid dataset ref %q: name contains '/'", r)
	}
	return Ref{Prefix: CleanPrefix(r.Prefix), Name: name}, nil
}

// CleanPrefix canonicalizes a hierarchical prefix: redundant separators and
// leading/trailing slashes are removed, the empty prefix stays empty.
func CleanPrefix(p string) string {
	cleaned := path.Clean("/" + strings.TrimSpace(p))
	return strings.Trim(cleaned, "/")
}
