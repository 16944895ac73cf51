package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// DailyFile appends to <dir>/YYYY-MM-DD.log and switches to a new file
// on the first write after midnight.
type DailyFile struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	day string
	f   *os.File
}

// OpenDailyFile creates dir if needed and opens today's file
func OpenDailyFile(dir string) (*DailyFile, error) {
	return openDailyFile(dir, time.Now)
}

func openDailyFile(dir string, now func() time.Time) (*DailyFile, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	d := &DailyFile{dir: abs, now: now}
	if err := d.rotate(now().Format(dayLayout)); err != nil {
		return nil, err
	}
	return d, nil
}

// Path of the file currently written to
func (d *DailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return ""
	}
	return d.f.Name()
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if today := d.now().Format(dayLayout); today != d.day || d.f == nil {
		if err := d.rotate(today); err != nil {
			return 0, err
		}
	}
	return d.f.Write(p)
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// rotate must be called with mu held
func (d *DailyFile) rotate(day string) error {
	path := filepath.Join(d.dir, day+".log")
	if !isValidLogPath(d.dir, path) {
		return fmt.Errorf("invalid log file path: %s", path)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 - path is validated by isValidLogPath
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if d.f != nil {
		if err := d.f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
		}
	}
	d.f = f
	d.day = day
	return nil
}

// isValidLogPath reports whether path stays inside dir
func isValidLogPath(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
