// Package mcp provides an MCP (Model Context Protocol) server adapter for scoresync.
// It lets AI assistants inspect the generation history and regenerate score PDFs.
package mcp

import "errors"

// ErrMissingHistory is returned when the generation log is not provided.
var ErrMissingHistory = errors.New("mcp: generation history is required")

// ErrReconcileUnavailable is returned by the reconcile tool when the server
// was started without a regenerator.
var ErrReconcileUnavailable = errors.New("mcp: reconcile is not available in this server")
