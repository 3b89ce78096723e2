// Package topic groups a named stream's partitions and routes produced
// records to one of them, either by key hash or by round robin.
package topic

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/aboosoyeed/flyq/internal/codec"
	"github.com/aboosoyeed/flyq/internal/logstore"
)

const dirPrefix = "topic_"

// Topic owns a fixed-size set of partitions rooted under one directory.
type Topic struct {
	Name            string
	dir             string
	maxSegmentBytes uint64

	mu             sync.RWMutex
	partitions     map[uint32]*logstore.Partition
	partitionCount uint32
	nextPartition  uint32 // round robin cursor for key-less produces
}

func dirName(name string) string {
	return dirPrefix + name
}

// New creates a topic directory with partitionCount empty partitions.
func New(baseDir, name string, partitionCount uint32, maxSegmentBytes uint64) (*Topic, error) {
	dir := filepath.Join(baseDir, dirName(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("topic: create dir %s: %w", dir, err)
	}

	t := &Topic{
		Name:            name,
		dir:             dir,
		maxSegmentBytes: maxSegmentBytes,
		partitions:      make(map[uint32]*logstore.Partition, partitionCount),
		partitionCount:  partitionCount,
	}
	for id := uint32(0); id < partitionCount; id++ {
		partDir := filepath.Join(dir, partitionDirName(id))
		p, err := logstore.OpenPartition(partDir, id, maxSegmentBytes)
		if err != nil {
			return nil, err
		}
		t.partitions[id] = p
	}
	return t, nil
}

func partitionDirName(id uint32) string {
	return fmt.Sprintf("partition_%d", id)
}

// ScanExisting loads a topic from an already-populated directory, recovering
// whatever partitions are found under it. Returns nil if path isn't a
// topic directory.
func ScanExisting(path string, maxSegmentBytes uint64) (*Topic, error) {
	base := filepath.Base(path)
	name, ok := strings.CutPrefix(base, dirPrefix)
	if !ok {
		return nil, nil
	}

	t := &Topic{
		Name:            name,
		dir:             path,
		maxSegmentBytes: maxSegmentBytes,
		partitions:      make(map[uint32]*logstore.Partition),
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("topic: scan %s: %w", path, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, ok := parsePartitionID(entry.Name())
		if !ok {
			continue
		}
		p, err := logstore.OpenPartition(filepath.Join(path, entry.Name()), id, maxSegmentBytes)
		if err != nil {
			return nil, err
		}
		t.partitions[id] = p
		if id+1 > t.partitionCount {
			t.partitionCount = id + 1
		}
	}
	return t, nil
}

func parsePartitionID(name string) (uint32, bool) {
	s, ok := strings.CutPrefix(name, "partition_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// Produce routes rec to a partition — by xxhash of the key when one is
// present, otherwise round robin — and appends it, returning where it
// landed.
func (t *Topic) Produce(rec codec.Record) (partitionID uint32, offset uint64, err error) {
	if rec.Key != nil {
		partitionID = t.hashKeyToPartition(rec.Key)
	} else {
		partitionID = uint32(atomic.AddUint32(&t.nextPartition, 1) - 1) % t.partitionCount
	}

	t.mu.RLock()
	p, ok := t.partitions[partitionID]
	t.mu.RUnlock()
	if !ok {
		return 0, 0, fmt.Errorf("topic: malformed partition map: missing partition %d", partitionID)
	}

	offset, err = p.Append(rec)
	return partitionID, offset, err
}

func (t *Topic) hashKeyToPartition(key []byte) uint32 {
	return uint32(xxhash.Sum64(key) % uint64(t.partitionCount))
}

// Partition returns the partition by id, or false if it doesn't exist.
func (t *Topic) Partition(id uint32) (*logstore.Partition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.partitions[id]
	return p, ok
}

// PartitionCount reports how many partitions this topic has.
func (t *Topic) PartitionCount() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.partitionCount
}

// Partitions returns every partition, keyed by id, for flush/retention
// sweeps that walk the whole topic.
func (t *Topic) Partitions() map[uint32]*logstore.Partition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[uint32]*logstore.Partition, len(t.partitions))
	for id, p := range t.partitions {
		out[id] = p
	}
	return out
}
