// Package completion owns the set of interchangeable language-model provider
// clients and executes completions against them with two-level fallback:
// alternate models within a provider first, then alternate providers in a
// configured order. Streaming requests fall back at the provider level only
// to bound latency.
//
// The package also ships request validation (invalid requests never reach a
// provider), a deterministic provider/model selection policy used for
// observability, and a cheap token estimator for pre-flight sizing.
package completion
