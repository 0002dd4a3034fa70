// Package router classifies free-text user requests into intents, scores
// registered agents against the classified intent and per-user enablement,
// and dispatches the request to the top-scoring agent with the session, user
// and request context merged in.
//
// Classification and scoring are pure functions: given the same message and
// agent set they always produce the same decision, independent of storage
// state. The only side effects of routing are the final session and user
// context writes after the agent has answered.
package router
