// Package agent contains the agent execution core: the DomainAgent contract
// concrete agents implement, and the Runner that wraps each implementation
// with the shared request pipeline (validate -> enrich -> build completion
// request -> invoke completion service -> post-process), the agent status
// machine, rolling metrics and health aggregation.
//
// Design principles:
//   - One abstract contract plus composition: shared pipeline logic lives in
//     Runner, never in an inheritance chain
//   - Pipeline errors stop at the Runner boundary as structured fallback
//     responses; the router never sees an agent exception
//   - Runners hold no session-local state, so one runner serves many
//     sessions concurrently
package agent
