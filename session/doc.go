// Package session provides ConversationStore implementations.
//
// The canonical ConversationStore interface lives in the core package to
// avoid dependency cycles; this package supplies the process-local backend
// used by the critique façade, the chat panel and the MCP server.
package session
