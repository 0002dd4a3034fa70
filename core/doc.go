// Package core defines the shared primitives of the AgentHub runtime:
// agent types, intents and capability sets, conversational messages, the
// normalized request/response pair exchanged between the router and agents,
// and the agent status/metrics/health records.
//
// The package intentionally carries no behavior beyond small value helpers so
// that every other package (completion, agent, session, router, lifecycle)
// can depend on it without cycles.
package core
