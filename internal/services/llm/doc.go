// Package llm provides a client for the Cursor API surfaces the description
// pipeline relies on.
//
// Two generation paths are exposed:
//   - Client.Complete: synchronous chat completion (POST /v1/chat/completions)
//     returning the assistant message content.
//   - Client.RunAgent: background agent (POST /v0/agents) created against a
//     workspace repository, then polled until it reaches a terminal state.
//
// # Agent Polling
//
// WaitForAgent checks status up to the configured attempt budget, waiting one
// poll interval after every non-terminal response. With the defaults (60
// checks, 5s interval) an agent gets roughly five minutes to finish before
// ErrAgentTimeout is returned. The wait function is injectable via WithSleeper
// so tests can count polls without real delays.
//
// # Error Shape
//
// Non-success HTTP responses surface as *StatusError carrying the status code
// so callers can decide between falling back (endpoint missing, transient
// failure) and giving up. Terminal agent failures surface as
// *AgentFailureError with the reported status and message. The package does
// not classify beyond that; callers tag errors for persistence.
package llm
