// Package graph turns a flat list of stage definitions into a dependency
// graph: producer to consumer edges inferred from artifact declarations,
// explicit ordering edges, and a deterministic topological order.
package graph
