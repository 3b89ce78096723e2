package engine

import "errors"

var (
	// ErrNoTopic is returned for any operation against a topic that doesn't
	// exist. Produce returns it only when auto-creation is disabled.
	ErrNoTopic = errors.New("engine: topic does not exist")
	// ErrNoPartition is returned when a request names a partition id a
	// topic doesn't have.
	ErrNoPartition = errors.New("engine: partition does not exist")
)
