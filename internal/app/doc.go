// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary run lifecycle (store selection,
// pipeline loading, graph build, execution), decoupled from any specific
// entrypoint like a CLI or server.
package app
