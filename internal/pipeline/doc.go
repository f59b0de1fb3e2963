// Package pipeline is the HCL front-end for stage definitions. It parses
// pipeline files into the same []*stage.Definition the programmatic API
// accepts; nothing downstream knows HCL exists.
package pipeline
