// Package runner coordinates loop runs around the persistence boundary.
//
// A Runner owns everything one request needs beyond the loop itself: it
// loads or creates the session, renders the prior transcript into the
// loop's history input, persists the user message before the run and the
// assistant reply with its tool execution log after it, and forwards the
// loop's event stream to the caller.
//
// Concurrency rules:
//   - one run per session at a time; a second Start on a busy session
//     returns ErrSessionBusy immediately
//   - total concurrent runs are bounded by a semaphore; Start blocks for a
//     slot until the caller's context is done
//   - every run carries a deadline (RunTimeout); when it expires the
//     stream ends with a terminal error event. Cancel(runID) aborts a run
//     early and closes its stream without one
package runner
