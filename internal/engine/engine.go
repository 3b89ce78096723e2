// Package engine is the broker's façade over topics, partitions, and
// consumer offsets: every wire-protocol operation the server dispatches
// ends up as one call here.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aboosoyeed/flyq/internal/codec"
	"github.com/aboosoyeed/flyq/internal/offsets"
	"github.com/aboosoyeed/flyq/internal/topic"
)

const (
	DefaultPartitionCount  = 3
	DefaultAutoCreateTopic = true
)

// Engine owns every topic the broker serves plus the shared consumer-offset
// tracker, and is the single point of mutation for topic creation.
type Engine struct {
	baseDir         string
	maxSegmentBytes uint64
	autoCreateTopic bool
	log             *zap.Logger
	metrics         *Metrics

	mu     sync.RWMutex
	topics map[string]*topic.Topic

	Offsets *offsets.Tracker
}

// Load opens an engine rooted at baseDir, recovering whatever topics and
// their partitions already exist on disk and loading the consumer offset
// file alongside them.
func Load(baseDir string, maxSegmentBytes uint64, autoCreateTopic bool, log *zap.Logger, metrics *Metrics) (*Engine, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create base dir %s: %w", baseDir, err)
	}

	e := &Engine{
		baseDir:         baseDir,
		maxSegmentBytes: maxSegmentBytes,
		autoCreateTopic: autoCreateTopic,
		log:             log,
		metrics:         metrics,
		topics:          make(map[string]*topic.Topic),
		Offsets:         offsets.New(filepath.Join(baseDir, "consumer_offsets.json")),
	}

	if err := e.Offsets.LoadFromFile(); err != nil {
		return nil, err
	}
	if err := e.scanTopics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) scanTopics() error {
	entries, err := os.ReadDir(e.baseDir)
	if err != nil {
		return fmt.Errorf("engine: scan %s: %w", e.baseDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		t, err := topic.ScanExisting(filepath.Join(e.baseDir, entry.Name()), e.maxSegmentBytes)
		if err != nil {
			return err
		}
		if t != nil {
			e.topics[t.Name] = t
		}
	}
	return nil
}

// CreateTopic creates a new topic with the given partition count, or
// DefaultPartitionCount if count is 0.
func (e *Engine) CreateTopic(name string, count uint32) (*topic.Topic, error) {
	if count == 0 {
		count = DefaultPartitionCount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.topics[name]; ok {
		return existing, nil
	}
	t, err := topic.New(e.baseDir, name, count, e.maxSegmentBytes)
	if err != nil {
		return nil, err
	}
	e.topics[name] = t
	return t, nil
}

func (e *Engine) getTopic(name string) (*topic.Topic, bool) {
	e.mu.RLock()
	t, ok := e.topics[name]
	e.mu.RUnlock()
	return t, ok
}

func (e *Engine) ensureTopic(name string) (*topic.Topic, error) {
	if t, ok := e.getTopic(name); ok {
		return t, nil
	}
	if !e.autoCreateTopic {
		return nil, ErrNoTopic
	}
	return e.CreateTopic(name, DefaultPartitionCount)
}

// Metrics returns the engine's metric set, for background tasks that need
// to record against it outside of a Produce/Consume call.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Topics returns every topic the engine currently serves, for background
// sweeps that need to walk them all.
func (e *Engine) Topics() map[string]*topic.Topic {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*topic.Topic, len(e.topics))
	for name, t := range e.topics {
		out[name] = t
	}
	return out
}

// Produce appends rec to topicName, auto-creating the topic first if
// configured to, and returns where it landed.
func (e *Engine) Produce(topicName string, rec codec.Record) (partition uint32, offset uint64, err error) {
	t, err := e.ensureTopic(topicName)
	if err != nil {
		e.metrics.ProduceErrors.WithLabelValues(topicName).Inc()
		return 0, 0, err
	}

	start := time.Now()
	partition, offset, err = t.Produce(rec)
	if err != nil {
		e.metrics.ProduceErrors.WithLabelValues(topicName).Inc()
		return 0, 0, err
	}
	partitionLabel := strconv.FormatUint(uint64(partition), 10)
	e.metrics.ProduceLatency.WithLabelValues(topicName, partitionLabel).Observe(time.Since(start).Seconds())
	e.metrics.RecordsProduced.WithLabelValues(topicName, partitionLabel).Inc()
	e.log.Debug("produced record", zap.String("topic", topicName), zap.Uint32("partition", partition), zap.Uint64("offset", offset))
	return partition, offset, nil
}

// Consume returns the first record at or after offset on topic/partition,
// or found=false at the log's tail or when offset is no longer retained.
func (e *Engine) Consume(topicName string, partitionID uint32, offset uint64) (rec codec.Record, recOffset uint64, found bool, err error) {
	t, ok := e.getTopic(topicName)
	if !ok {
		return codec.Record{}, 0, false, ErrNoTopic
	}
	p, ok := t.Partition(partitionID)
	if !ok {
		return codec.Record{}, 0, false, ErrNoPartition
	}
	rec, recOffset, found, err = p.ReadOne(offset)
	if err == nil && found {
		e.metrics.RecordsConsumed.WithLabelValues(topicName, strconv.FormatUint(uint64(partitionID), 10)).Inc()
	}
	return rec, recOffset, found, err
}

// ConsumeWithGroup consumes from wherever group last committed on
// partitionID, defaulting to the beginning of the log if it never has.
// Committed offsets are keyed by group and partition id only, so the same
// partition id on different topics shares one committed offset per group.
func (e *Engine) ConsumeWithGroup(topicName string, partitionID uint32, group string) (rec codec.Record, offset uint64, found bool, err error) {
	offset, _ = e.Offsets.Fetch(group, partitionID)
	rec, offset, found, err = e.Consume(topicName, partitionID, offset)
	return rec, offset, found, err
}

// CommitOffset records group's progress on partitionID. The topic must
// already exist; the offset is stored under group and partition id only,
// not under the topic name.
func (e *Engine) CommitOffset(topicName string, partitionID uint32, group string, offset uint64) error {
	if _, ok := e.getTopic(topicName); !ok {
		return ErrNoTopic
	}
	e.Offsets.Commit(group, partitionID, offset)
	return nil
}

// Watermark reports topic/partition's low watermark, high watermark, and
// log end offset.
func (e *Engine) Watermark(topicName string, partitionID uint32) (low, high, logEnd uint64, err error) {
	t, ok := e.getTopic(topicName)
	if !ok {
		return 0, 0, 0, ErrNoTopic
	}
	p, ok := t.Partition(partitionID)
	if !ok {
		return 0, 0, 0, ErrNoPartition
	}
	low, high, logEnd = p.Watermark()
	return low, high, logEnd, nil
}

// PartitionLag is one topic/partition's consumer lag for a group.
type PartitionLag struct {
	Topic     string
	Partition uint32
	Committed uint64
	High      uint64
	Lag       uint64
}

// ConsumerLag reports, for every partition of every named topic (or every
// topic the engine knows about if topics is empty), how far group's
// committed offset trails the partition's high watermark.
func (e *Engine) ConsumerLag(group string, topics []string) (total uint64, breakdown []PartitionLag, err error) {
	names := topics
	if len(names) == 0 {
		for name := range e.Topics() {
			names = append(names, name)
		}
	}

	for _, name := range names {
		t, ok := e.getTopic(name)
		if !ok {
			return 0, nil, ErrNoTopic
		}
		for id := uint32(0); id < t.PartitionCount(); id++ {
			p, ok := t.Partition(id)
			if !ok {
				continue
			}
			committed, _ := e.Offsets.Fetch(group, id)
			_, high, _ := p.Watermark()
			var lag uint64
			if high > committed {
				lag = high - committed
			}
			total += lag
			breakdown = append(breakdown, PartitionLag{
				Topic: name, Partition: id, Committed: committed, High: high, Lag: lag,
			})
		}
	}
	return total, breakdown, nil
}

// PartitionHealth is the full health snapshot for one topic/partition.
type PartitionHealth struct {
	Topic        string
	Partition    uint32
	SegmentCount uint32
	TotalBytes   uint64
	Low          uint64
	High         uint64
	LogEnd       uint64
	LastCleanup  *uint64 // unix millis, nil if cleanup never ran
}

// GetPartitionHealth reports a partition's segment count, on-disk size,
// watermarks, and last retention sweep time.
func (e *Engine) GetPartitionHealth(topicName string, partitionID uint32) (PartitionHealth, error) {
	t, ok := e.getTopic(topicName)
	if !ok {
		return PartitionHealth{}, ErrNoTopic
	}
	p, ok := t.Partition(partitionID)
	if !ok {
		return PartitionHealth{}, ErrNoPartition
	}
	low, high, logEnd := p.Watermark()
	health := PartitionHealth{
		Topic:        topicName,
		Partition:    partitionID,
		SegmentCount: uint32(p.SegmentCount()),
		TotalBytes:   p.TotalBytes(),
		Low:          low,
		High:         high,
		LogEnd:       logEnd,
	}
	if t := p.LastCleanup(); t != nil {
		millis := uint64(t.UnixMilli())
		health.LastCleanup = &millis
	}
	return health, nil
}
