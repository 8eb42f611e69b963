// Package testutil contains helpers shared across tests: draining event
// streams with deadlines, projecting event sequences for order assertions,
// and a fluent builder for conversation histories. These helpers are
// intentionally minimal and are not intended for production usage.
package testutil
