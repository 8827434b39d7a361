// Package result holds what the analyzer learns about a project.
//
// A Result describes one target framework of one project: the evaluated
// properties and items, the compiler invocation and the build outcome.
//
// Registry provides get-or-create by target framework moniker and keeps
// results in the order they were first observed:
//   - Get(tfm) - Retrieve a result
//   - GetOrCreate(tfm) - Atomic get-or-create
//   - Snapshot(ok) - Freeze into a Results collection
//
// Thread-safe with RWMutex for concurrent access.
package result
