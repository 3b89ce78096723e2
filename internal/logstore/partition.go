package logstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aboosoyeed/flyq/internal/codec"
)

// Partition is one ordered, append-only log: a ladder of segment files plus
// the durable offset counters that track how far it has grown, been
// consumed, and been trimmed. All mutation goes through append, consume
// routing, or retention cleanup, each of which takes mu.
type Partition struct {
	ID  uint32
	dir string

	mu              sync.Mutex
	store           *storage
	segments        map[uint64]*segment
	order           []uint64 // ascending base offsets, kept in sync with segments
	activeSegment   uint64
	maxSegmentBytes uint64

	state *partitionState

	metaPath  string
	metaDirty int32 // atomic bool

	cleanupMu   sync.Mutex
	lastCleanup *time.Time
}

// OpenPartition loads a partition rooted at dir, recovering any segments
// already on disk and replaying their tails, or creates a brand new single
// empty segment if dir is empty.
func OpenPartition(dir string, id uint32, maxSegmentBytes uint64) (*Partition, error) {
	store, err := newStorage(dir)
	if err != nil {
		return nil, err
	}

	p := &Partition{
		ID:              id,
		dir:             dir,
		store:           store,
		segments:        make(map[uint64]*segment),
		maxSegmentBytes: maxSegmentBytes,
		metaPath:        filepath.Join(dir, "meta.json"),
	}

	meta, err := loadPartitionMeta(p.metaPath)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		p.state = &partitionState{
			logEndOffset:  meta.LogEndOffset,
			lowWatermark:  meta.LowWatermark,
			highWatermark: meta.HighWatermark,
		}
	} else {
		p.state = newPartitionState(0)
	}

	if err := p.scanSegments(); err != nil {
		return nil, err
	}
	if len(p.segments) == 0 {
		if err := p.newActiveSegment(0); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Partition) scanSegments() error {
	entries, err := p.store.scanEntries()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isSegmentFile(entry.Name()) {
			continue
		}
		seg, nextOffset, err := recoverSegment(p.dir, entry.Name())
		if err != nil {
			return fmt.Errorf("logstore: recover partition %d: %w", p.ID, err)
		}
		p.segments[seg.baseOffset] = seg
		p.order = append(p.order, seg.baseOffset)
		if nextOffset > p.state.logEnd() {
			p.state.setLogEnd(nextOffset)
			p.activeSegment = seg.baseOffset
		}
	}
	sort.Slice(p.order, func(i, j int) bool { return p.order[i] < p.order[j] })
	if len(p.order) > 0 && p.activeSegment == 0 {
		p.activeSegment = p.order[len(p.order)-1]
	}
	return nil
}

func (p *Partition) newActiveSegment(baseOffset uint64) error {
	seg, err := newSegment(p.dir, baseOffset)
	if err != nil {
		return err
	}
	p.segments[baseOffset] = seg
	p.order = append(p.order, baseOffset)
	p.activeSegment = baseOffset
	return nil
}

// Append assigns the next offset in the partition and writes rec to the
// active segment, rotating to a fresh one first if it would overflow
// maxSegmentBytes.
func (p *Partition) Append(rec codec.Record) (uint64, error) {
	offset := p.state.fetchAndIncrementLogEnd()
	body := codec.EncodeForLog(offset, rec)

	p.mu.Lock()
	defer p.mu.Unlock()

	active := p.segments[p.activeSegment]
	if active.sizeBytes() > 0 && active.sizeBytes()+uint64(len(body)) > p.maxSegmentBytes {
		if err := p.newActiveSegment(offset); err != nil {
			return 0, err
		}
		active = p.segments[p.activeSegment]
	}

	if err := active.append(offset, body); err != nil {
		return 0, err
	}
	p.state.setHigh(offset)
	atomic.StoreInt32(&p.metaDirty, 1)
	return offset, nil
}

// segmentFor returns the base offset of the segment covering offset, or
// false if no resident segment covers it (too old, evicted, or beyond the
// log end).
func (p *Partition) segmentFor(offset uint64) (uint64, bool) {
	for i := len(p.order) - 1; i >= 0; i-- {
		base := p.order[i]
		seg := p.segments[base]
		if seg.baseOffset <= offset && seg.lastOffset >= offset {
			return base, true
		}
	}
	return 0, false
}

// PartitionIterator streams records across the segment chain in offset
// order, stepping to the next segment once the current one is exhausted.
type PartitionIterator struct {
	p           *Partition
	order       []uint64
	idx         int
	current     *segmentIterator
	nextOffset  uint64
}

// StreamFromOffset returns an iterator over every record at or after
// offset. It returns ErrOffsetNotFound if offset isn't covered by any
// segment currently on disk.
func (p *Partition) StreamFromOffset(offset uint64) (*PartitionIterator, error) {
	p.mu.Lock()
	startBase, ok := p.segmentFor(offset)
	if !ok {
		p.mu.Unlock()
		return nil, ErrOffsetNotFound
	}
	startIdx := sort.Search(len(p.order), func(i int) bool { return p.order[i] >= startBase })
	order := append([]uint64(nil), p.order[startIdx:]...)
	p.mu.Unlock()

	return &PartitionIterator{p: p, order: order, nextOffset: offset}, nil
}

// Next returns the next record, io.EOF once the chain is exhausted, or any
// decode/torn-write error encountered along the way.
func (it *PartitionIterator) Next() (uint64, codec.Record, error) {
	for {
		if it.current != nil {
			offset, rec, err := it.current.next()
			if err == nil {
				it.nextOffset = offset + 1
				return offset, rec, nil
			}
			it.current.close()
			it.current = nil
			if err != io.EOF {
				return 0, codec.Record{}, err
			}
		}

		if it.idx >= len(it.order) {
			return 0, codec.Record{}, io.EOF
		}
		base := it.order[it.idx]
		it.idx++

		it.p.mu.Lock()
		seg, ok := it.p.segments[base]
		it.p.mu.Unlock()
		if !ok {
			continue // evicted by retention while we were iterating
		}

		iter, err := seg.streamFromOffset(it.nextOffset)
		if err != nil {
			return 0, codec.Record{}, err
		}
		it.current = iter
	}
}

// Close releases the file handle the iterator currently holds open, if any.
func (it *PartitionIterator) Close() error {
	if it.current != nil {
		return it.current.close()
	}
	return nil
}

// ReadOne returns the first record at or after offset, or found=false at
// the log's tail or when no resident segment covers offset.
func (p *Partition) ReadOne(offset uint64) (rec codec.Record, recOffset uint64, found bool, err error) {
	it, err := p.StreamFromOffset(offset)
	if err == ErrOffsetNotFound {
		return codec.Record{}, 0, false, nil
	}
	if err != nil {
		return codec.Record{}, 0, false, err
	}
	defer it.Close()

	recOffset, rec, err = it.Next()
	if err == io.EOF {
		return codec.Record{}, 0, false, nil
	}
	if err != nil {
		return codec.Record{}, 0, false, err
	}
	return rec, recOffset, true, nil
}

// Watermark reports the partition's three offset counters.
func (p *Partition) Watermark() (low, high, logEnd uint64) {
	return p.state.low(), p.state.high(), p.state.logEnd()
}

// PersistMeta writes the partition's offset counters to meta.json if they
// have changed since the last flush.
func (p *Partition) PersistMeta() error {
	if !atomic.CompareAndSwapInt32(&p.metaDirty, 1, 0) {
		return nil
	}
	low, high, logEnd := p.Watermark()
	return savePartitionMeta(p.metaPath, &partitionMeta{
		LowWatermark:  low,
		HighWatermark: high,
		LogEndOffset:  logEnd,
	})
}

// SegmentCount and TotalBytes back the GetPartitionHealth response.
func (p *Partition) SegmentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.segments)
}

func (p *Partition) TotalBytes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total uint64
	for _, seg := range p.segments {
		total += seg.sizeBytes()
	}
	return total
}

// LastCleanup reports when retention cleanup last ran against this
// partition, or nil if it never has.
func (p *Partition) LastCleanup() *time.Time {
	p.cleanupMu.Lock()
	defer p.cleanupMu.Unlock()
	return p.lastCleanup
}

// MaybeCleanup evicts segments older than retention or, if retentionBytes
// is set, the oldest segments needed to bring total size back under it. The
// active segment is never evicted. A segment's modification time stands in
// for "age of its newest record" — exact enough for a housekeeping sweep.
// It returns how many segments were evicted, for callers that report it.
func (p *Partition) MaybeCleanup(retention time.Duration, retentionBytes *uint64, now time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() {
		p.cleanupMu.Lock()
		t := now
		p.lastCleanup = &t
		p.cleanupMu.Unlock()
	}()

	if len(p.order) <= 1 {
		return 0, nil
	}

	evictable := p.order[:len(p.order)-1] // never touch the active (last) segment

	var toEvict []uint64
	for _, base := range evictable {
		seg := p.segments[base]
		info, err := os.Stat(seg.path)
		if err != nil {
			continue
		}
		if retention > 0 && now.Sub(info.ModTime()) > retention {
			toEvict = append(toEvict, base)
		}
	}

	if retentionBytes != nil {
		total := p.totalBytesLocked()
		for _, base := range evictable {
			if total <= *retentionBytes {
				break
			}
			if containsOffset(toEvict, base) {
				total -= p.segments[base].sizeBytes()
				continue
			}
			toEvict = append(toEvict, base)
			total -= p.segments[base].sizeBytes()
		}
	}

	for _, base := range toEvict {
		if err := p.evictSegment(base); err != nil {
			return 0, err
		}
	}
	return len(toEvict), nil
}

func (p *Partition) totalBytesLocked() uint64 {
	var total uint64
	for _, seg := range p.segments {
		total += seg.sizeBytes()
	}
	return total
}

func containsOffset(haystack []uint64, needle uint64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func (p *Partition) evictSegment(base uint64) error {
	seg, ok := p.segments[base]
	if !ok {
		return nil
	}
	if err := seg.close(); err != nil {
		return fmt.Errorf("logstore: close evicted segment %s: %w", seg.path, err)
	}
	if err := os.Remove(seg.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("logstore: remove segment %s: %w", seg.path, err)
	}
	if err := os.Remove(seg.indexPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("logstore: remove index %s: %w", seg.indexPath, err)
	}
	delete(p.segments, base)
	for i, v := range p.order {
		if v == base {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	if seg.lastOffset+1 > p.state.low() {
		p.state.setLow(seg.lastOffset + 1)
	}
	return nil
}
