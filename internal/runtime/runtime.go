// Package runtime coordinates the broker's background behaviors: periodic
// offset and metadata flush, and retention cleanup. It bridges the core
// storage engine with operational upkeep that isn't triggered by any single
// request.
package runtime

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aboosoyeed/flyq/internal/engine"
)

// Config holds the tunable intervals the runtime's background tasks run on.
type Config struct {
	OffsetFlushInterval   time.Duration
	MetadataFlushInterval time.Duration
	CleanupInterval       time.Duration
	Retention             time.Duration
	RetentionBytes        uint64
}

const (
	defaultOffsetFlushInterval   = 5 * time.Second
	defaultMetadataFlushInterval = 5 * time.Second
)

// Run launches the background tasks and blocks until ctx is cancelled. The
// offset and metadata flush tasks each perform one final pass before
// returning; retention cleanup stops immediately without one, so shutdown
// never evicts a segment a clean restart would have kept. Returns the first
// error any task reported, if any.
func Run(ctx context.Context, eng *engine.Engine, cfg Config, log *zap.Logger) error {
	if cfg.OffsetFlushInterval == 0 {
		cfg.OffsetFlushInterval = defaultOffsetFlushInterval
	}
	if cfg.MetadataFlushInterval == 0 {
		cfg.MetadataFlushInterval = defaultMetadataFlushInterval
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runOffsetFlush(ctx, eng, cfg.OffsetFlushInterval, log) })
	g.Go(func() error { return runMetadataFlush(ctx, eng, cfg.MetadataFlushInterval, log) })
	g.Go(func() error { return runRetentionCleanup(ctx, eng, cfg, log) })
	return g.Wait()
}

func runOffsetFlush(ctx context.Context, eng *engine.Engine, interval time.Duration, log *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	flush := func(final bool) {
		if err := eng.Offsets.FlushDirty(); err != nil {
			if final {
				log.Error("final offset flush failed", zap.Error(err))
			} else {
				log.Error("offset flush failed", zap.Error(err))
			}
			return
		}
		log.Debug("offset flush completed", zap.Bool("final", final))
	}

	for {
		select {
		case <-ticker.C:
			flush(false)
		case <-ctx.Done():
			log.Info("shutdown signal received, flushing offsets before exit")
			flush(true)
			return nil
		}
	}
}

func runMetadataFlush(ctx context.Context, eng *engine.Engine, interval time.Duration, log *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	flush := func(final bool) {
		for name, t := range eng.Topics() {
			for id, p := range t.Partitions() {
				if err := p.PersistMeta(); err != nil {
					log.Error("metadata flush failed", zap.String("topic", name), zap.Uint32("partition", id), zap.Error(err))
				}
			}
		}
		log.Debug("metadata flush completed", zap.Bool("final", final))
	}

	for {
		select {
		case <-ticker.C:
			flush(false)
		case <-ctx.Done():
			log.Info("shutdown signal received, flushing metadata before exit")
			flush(true)
			return nil
		}
	}
}

func runRetentionCleanup(ctx context.Context, eng *engine.Engine, cfg Config, log *zap.Logger) error {
	interval := cfg.CleanupInterval
	if interval == 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var retentionBytes *uint64
	if cfg.RetentionBytes > 0 {
		retentionBytes = &cfg.RetentionBytes
	}

	sweep := func() {
		now := time.Now()
		for name, t := range eng.Topics() {
			for id, p := range t.Partitions() {
				evicted, err := p.MaybeCleanup(cfg.Retention, retentionBytes, now)
				if err != nil {
					log.Error("retention cleanup failed", zap.String("topic", name), zap.Uint32("partition", id), zap.Error(err))
					continue
				}
				if evicted > 0 {
					eng.Metrics().SegmentsEvicted.WithLabelValues(name, strconv.FormatUint(uint64(id), 10)).Add(float64(evicted))
				}
			}
		}
		log.Debug("retention cleanup completed")
	}

	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			return nil
		}
	}
}
