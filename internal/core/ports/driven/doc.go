// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RemoteStore: Folder tree holding scores and their derivatives (Google Drive or a local directory)
//   - Renderer: External notation renderer producing PDFs
//   - PageCounter: Counts pages of a rendered PDF
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CursorStore: Persists the change cursor. Without it the feed restarts from "now" on every launch.
//   - GenerationLog: Records reconcile history for the status command.
//   - TokenProvider: OAuth access for the Drive store. Unused in local mode.
package driven
