// Package lifecycle supervises the process-wide set of agent runners:
// registration, coordinated bulk start/stop/pause/resume, single-agent
// restart, unhealthy-agent detection, synchronous listener notification of
// every state transition, and graceful drain of all agents on process
// termination.
//
// Bulk operations are best-effort: one agent's failure is reported as an
// error event and never blocks the rest of the batch. Restart and shutdown
// are the exceptions; their failures are surfaced to the caller or, for
// shutdown, to the process exit status.
package lifecycle
