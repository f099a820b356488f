// Package janitor removes stale temp-directory leftovers on a schedule. The
// compute runtime and the parquet writer both drop files under /tmp/data;
// finished requests never clean up after themselves.
package janitor

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// maxAge is how long a temp file may linger, matching the result cache TTL.
const maxAge = 24 * time.Hour

// Janitor owns the cleanup schedule.
type Janitor struct {
	dir  string
	cron *cron.Cron
}

// New builds a janitor over the given directory.
func New(dir string) *Janitor {
	return &Janitor{dir: dir, cron: cron.New()}
}

// Start schedules an hourly sweep.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("@hourly", func() {
		removed, err := Sweep(j.dir, time.Now().Add(-maxAge))
		if err != nil {
			slog.Warn("Temp directory sweep failed", "dir", j.dir, "error", err)
			return
		}
		if removed > 0 {
			slog.Info("Swept temp directory", "dir", j.dir, "removed", removed)
		}
	}); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep removes regular files in dir modified before cutoff and returns how
// many were removed. Subdirectories are left alone.
func Sweep(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to remove temp file", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
