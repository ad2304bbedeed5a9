// Package model defines the provider-agnostic abstraction used by agents to
// obtain completions from a language model.
//
// Core goals:
//   - One blocking call per reasoning iteration (Generate)
//   - Stop sequences as a first class request field
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so agents remain decoupled from vendor SDKs.
package model
