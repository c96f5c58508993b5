// Package core provides the foundational domain types shared by the capture,
// model and façade layers:
//
//   - Parts and Content (role-based multimodal message payloads)
//   - Messages (one entry of the chat log, with the text shown to the user)
//   - Conversations (append-only ordered message logs)
//   - ConversationStore (pluggable persistence for conversations)
//   - TurnLimiter (caps model calls per conversation)
//
// The package intentionally keeps implementation concerns (providers, hosts,
// rendering) out of scope, exposing small types and interfaces so callers can
// substitute alternative backends in tests or production.
package core
