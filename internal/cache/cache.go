// Package cache persists the last good raw vendor response on disk.
//
// Every key has one primary slot (<dir>/<key>.json) that always holds the
// most recent successful fetch, plus timestamped archive copies
// (<archiveDir>/<key>_<shortTimestamp>.json). Primary writes go through a
// temp file and rename so readers never see a partial table.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const archiveTimeLayout = "060102_150405"

// ErrCache matches every CacheError via errors.Is.
var ErrCache = errors.New("cache failure")

type CacheError struct {
	Key string
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

func (e *CacheError) Is(target error) bool { return target == ErrCache }

// Disk is a file-backed cache. It is safe for use by one refresh sequence
// per key at a time.
type Disk struct {
	dir        string
	archiveDir string
	logger     *logrus.Entry
	now        func() time.Time
}

// NewDisk creates both directories. An empty archiveDir disables archiving.
func NewDisk(dir, archiveDir string, logger *logrus.Logger) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if archiveDir != "" {
		if err := os.MkdirAll(archiveDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	return &Disk{
		dir:        dir,
		archiveDir: archiveDir,
		logger:     logger.WithField("component", "cache"),
		now:        time.Now,
	}, nil
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.dir, key+".json")
}

// Write replaces the primary slot for key and archives a copy.
// Only a primary-slot failure is returned; archive failures are logged.
func (d *Disk) Write(key string, raw []byte) error {
	if key == "" {
		return &CacheError{Key: key, Op: "write", Err: errors.New("empty key")}
	}

	tmp, err := os.CreateTemp(d.dir, key+".*.tmp")
	if err != nil {
		return &CacheError{Key: key, Op: "write", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &CacheError{Key: key, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &CacheError{Key: key, Op: "write", Err: err}
	}
	if err := os.Rename(tmpName, d.path(key)); err != nil {
		os.Remove(tmpName)
		return &CacheError{Key: key, Op: "write", Err: err}
	}

	if d.archiveDir != "" {
		name := fmt.Sprintf("%s_%s.json", key, d.now().Format(archiveTimeLayout))
		if err := os.WriteFile(filepath.Join(d.archiveDir, name), raw, 0o644); err != nil {
			d.logger.Warnf("Failed to archive %s: %v", key, err)
		}
	}

	return nil
}

// Read returns the primary slot for key. It fails when the file is absent
// or does not hold valid JSON.
func (d *Disk) Read(key string) ([]byte, error) {
	raw, err := os.ReadFile(d.path(key))
	if err != nil {
		return nil, &CacheError{Key: key, Op: "read", Err: err}
	}
	if !json.Valid(raw) {
		return nil, &CacheError{Key: key, Op: "read", Err: errors.New("invalid json")}
	}
	return raw, nil
}

// ModTime reports when the primary slot was last written.
func (d *Disk) ModTime(key string) (time.Time, error) {
	info, err := os.Stat(d.path(key))
	if err != nil {
		return time.Time{}, &CacheError{Key: key, Op: "stat", Err: err}
	}
	return info.ModTime(), nil
}
