// Package janitor reclaims export staging directories that outlived their
// retention window. The sweep is the only safety net for exports that
// crashed or were aborted mid-stream.
package janitor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor sweeps stale subdirectories out of the staging root.
type Janitor struct {
	root      string
	retention time.Duration
	log       *zap.Logger
	nowFunc   func() time.Time
}

// New constructs a janitor for the staging root.
func New(root string, retention time.Duration, log *zap.Logger) *Janitor {
	return &Janitor{
		root:      root,
		retention: retention,
		log:       log,
		nowFunc:   time.Now,
	}
}

// Schedule registers the sweep on the cron runner. The returned entry runs
// until the runner stops.
func (j *Janitor) Schedule(runner *cron.Cron, spec string) (cron.EntryID, error) {
	return runner.AddFunc(spec, func() {
		if err := j.Sweep(context.Background()); err != nil {
			j.log.Warn("staging sweep failed", zap.Error(err))
		}
	})
}

// Sweep deletes immediate subdirectories of the staging root whose
// modification time is older than the retention window. Entries that vanish
// between listing and stat were cleaned up concurrently and are skipped.
// Modification time is used instead of birth time, which is not reliably
// available; the retention window absorbs the difference.
func (j *Janitor) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(j.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := j.nowFunc().Add(-j.retention)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(j.root, entry.Name())

		info, err := entry.Info()
		if err != nil {
			j.log.Warn("skipping staging entry that failed to stat",
				zap.String("path", path), zap.Error(err))
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			j.log.Warn("failed to remove stale staging directory",
				zap.String("path", path), zap.Error(err))
			continue
		}
		j.log.Info("removed stale staging directory", zap.String("path", path))
	}
	return nil
}
