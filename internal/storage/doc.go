// Package storage persists analyzed builds in a SQLite database so that
// results can be listed and reloaded without replaying the event log.
//
// Each analysis is one row in builds; every target framework result of that
// analysis is one row in results, with its property and item snapshot and its
// compiler invocation encoded as JSON.
package storage
