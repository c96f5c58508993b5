// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with vision-language models inside critique.
//
// Core goals:
//   - Hide vendor SDKs and REST shapes behind a single Generate call
//   - Carry multimodal history (text + inline images) in core.Content form
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests and offline demos (MockModel)
//
// Providers (Gemini, OpenAI, Anthropic) implement the Model interface from
// this package so higher layers remain decoupled from vendor SDKs.
package model
