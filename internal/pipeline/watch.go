package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// DefaultWatchInterval is the pause between raw directory scans.
const DefaultWatchInterval = 10 * time.Minute

// Watch scans the raw directory every interval and reruns the pipeline when
// a source file newer than the last processed one appears. A failed run is
// logged and retried at the next new file. Watch returns nil when ctx is
// cancelled.
func (p *Pipeline) Watch(ctx context.Context, interval time.Duration, onRun func(*Result, error)) error {
	if p.cfg.RawDir == "" {
		return fmt.Errorf("watch: %w", ErrNoSource)
	}
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	log := p.log.Named("watch")
	log.Info("watching for new data", zap.String("dir", p.cfg.RawDir), zap.Duration("interval", interval))

	var last time.Time
	for {
		src, mod, err := latestWithTime(p.cfg.RawDir)
		switch {
		case errors.Is(err, ErrNoSource):
			log.Debug("no data files")
		case err != nil:
			log.Warn("scan failed", zap.Error(err))
		case !mod.After(last):
			log.Debug("no new data", zap.String("source", src))
		default:
			log.Info("new data detected", zap.String("source", src))
			last = mod
			res, runErr := p.Run(ctx)
			if onRun != nil {
				onRun(res, runErr)
			}
		}

		select {
		case <-ctx.Done():
			log.Info("watch stopped")
			return nil
		case <-p.clock.After(interval):
		}
	}
}

func latestWithTime(dir string) (string, time.Time, error) {
	src, err := LatestSource(dir)
	if err != nil {
		return "", time.Time{}, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", time.Time{}, err
	}
	return src, info.ModTime(), nil
}
