// Package idgen generates lexicographically sortable identifiers for
// sessions, messages and tool executions. ULIDs sort by creation time,
// which keeps database scans in insertion order without a separate
// sequence column.
package idgen

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID string.
func New() string {
	return ulid.Make().String()
}
