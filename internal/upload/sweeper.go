package upload

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sweeper periodically deletes abandoned temp uploads.
//
// Only files older than maxAge go. A request still streaming its body keeps
// writing to a young file, so the sweep never pulls one out from under it.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

func NewSweeper(dir string, interval, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches the sweep loop. Call Stop to end it.
func (s *Sweeper) Start() {
	s.stop = make(chan struct{})
	ticker := time.NewTicker(s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()

	s.logger.Info("temp upload sweeper started", "dir", s.dir, "interval", s.interval, "max_age", s.maxAge)
}

// Stop ends the loop and waits for an in-progress sweep to finish.
func (s *Sweeper) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.stop = nil
	s.logger.Info("temp upload sweeper stopped")
}

// Sweep removes stale temp files once and reports how many went.
func (s *Sweeper) Sweep() int {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	if err != nil {
		s.logger.Error("reading temp dir", "dir", s.dir, "error", err)
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isTempFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("removing stale upload", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("removed stale uploads", "count", removed)
	}
	return removed
}
