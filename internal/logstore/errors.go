// Package logstore implements FlyQ's partitioned, segment-based append-only
// log: sparse-indexed segment files on disk, grouped into partitions that
// rotate segments on size and evict them on retention.
package logstore

import "errors"

var (
	// ErrOffsetNotFound is returned when a consume request names an offset
	// no segment in the partition currently covers (too old, or beyond the
	// log end).
	ErrOffsetNotFound = errors.New("logstore: offset not found")
)
