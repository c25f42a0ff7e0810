// Package domain defines the core business entities for scoresync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RemoteFile and FileKind: classified files in remote storage
//   - WatchedFile: a score the engine keeps derivatives for
//   - ChangeEvent and ChangePage: typed change-feed entries
//   - GenerationResult and GenerationRecord: reconcile outcomes
//   - AppSettings: application configuration
//
// Derivative naming lives here as well because generated file names are part
// of the persisted state shared with earlier runs.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
