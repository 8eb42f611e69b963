// Package model defines the provider-agnostic abstractions for driving
// language models and the router that selects among them.
//
// Core pieces:
//   - Model: unified streaming + non-streaming generation behind one interface
//   - Registry and State: the model catalog, the process-wide selection, and
//     per-model failure counters
//   - Router: retry with exponential backoff plus rotation to fallback models
//     when a model's retries are exhausted
//   - RetryPolicy: the backoff schedule, honoring (but clamping) Retry-After
//   - MockModel: scriptable in-memory model for tests and examples
//
// Providers (gateway, OpenAI, Anthropic, Ollama) implement the Model
// interface from this package so higher layers remain decoupled from vendor
// SDKs and wire formats.
package model
