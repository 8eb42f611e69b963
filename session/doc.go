// Package session manages conversation state on both sides of a run: the
// durable side (Store implementations persisting sessions, messages and tool
// execution logs) and the in-flight side (Context, the bounded window of
// recent turns fed to the model, with older turns folded into a running
// summary).
//
// The Store interface lives here alongside its in-memory implementation;
// the sqlite subpackage provides the durable backend. Higher layers depend
// on the interface only, so the wiring layer alone decides which backend a
// deployment uses.
package session
