package worker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// TempSweeper deletes invoice files left behind in the temp directory, e.g.
// after a failed upload.
type TempSweeper struct {
	dir    string
	maxAge time.Duration
	log    *slog.Logger
	cron   *cron.Cron
	now    func() time.Time
}

func NewTempSweeper(dir string, maxAge time.Duration, log *slog.Logger) *TempSweeper {
	return &TempSweeper{
		dir:    dir,
		maxAge: maxAge,
		log:    log,
		cron:   cron.New(cron.WithSeconds()),
		now:    time.Now,
	}
}

// Start schedules Sweep with a six-field (seconds first) cron spec.
func (s *TempSweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		n, err := s.Sweep()
		if err != nil {
			s.log.Error("sweep invoice temp dir", "error", err)
			return
		}
		if n > 0 {
			s.log.Info("swept invoice temp files", "removed", n)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule temp sweep: %w", err)
	}
	s.cron.Start()
	s.log.Info("temp sweeper started", "schedule", spec, "dir", s.dir)
	return nil
}

func (s *TempSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep removes regular files older than maxAge and returns how many went.
func (s *TempSweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			s.log.Warn("remove temp file", "error", err, "path", path)
			continue
		}
		removed++
	}
	return removed, nil
}
