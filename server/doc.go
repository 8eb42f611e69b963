// Package server exposes the agent over HTTP. It mounts a REST surface for
// sessions and the model catalog, streams chat runs as server-sent events
// (one "data:" frame per loop event, flushed immediately), and mirrors the
// same event feed over a WebSocket endpoint.
//
// The handlers are thin: session bookkeeping goes straight to the store and
// chat requests go through the runner, so per-session mutual exclusion,
// persistence and timeouts behave identically on every transport. Request
// contexts propagate client disconnects into the running loop.
package server
