package shard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/0xmhha/session-analytics/pkg/logger"
)

// dir implements the Dir interface.
type dir struct {
	path   string
	logger logger.Logger

	mu    sync.Mutex
	locks map[Date]*sync.Mutex
}

// Open returns a Dir rooted at path, creating the directory if needed.
func Open(path string, log logger.Logger) (Dir, error) {
	path = expandHome(path)

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, path)
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to stat shard directory %s: %w", path, err)
	case err != nil:
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return nil, fmt.Errorf("failed to create shard directory %s: %w", path, mkErr)
		}
		log.Info("created shard directory", "path", path)
	}

	return &dir{
		path:   path,
		logger: log,
		locks:  make(map[Date]*sync.Mutex),
	}, nil
}

// Path implements Dir.Path.
func (d *dir) Path() string {
	return d.path
}

// List implements Dir.List.
func (d *dir) List() ([]Info, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read shard directory: %w", err)
	}

	shards := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		date, err := ParseFileName(entry.Name())
		if err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("failed to get shard info", "file", entry.Name(), "error", err)
			continue
		}

		shards = append(shards, Info{
			Date: date,
			Path: filepath.Join(d.path, entry.Name()),
			Size: info.Size(),
		})
	}

	d.logger.Debug("listed shards", "path", d.path, "shards_found", len(shards))
	return shards, nil
}

// Read implements Dir.Read.
func (d *dir) Read(date Date) ([]json.RawMessage, error) {
	items, data, err := d.parse(date)
	if err == nil {
		return items, nil
	}
	if data == nil {
		return nil, err
	}

	// Healing rewrites the shard, so it must not race a locked writer.
	unlock := d.Lock(date)
	defer unlock()

	return d.ReadLocked(date)
}

// ReadLocked implements Dir.ReadLocked.
func (d *dir) ReadLocked(date Date) ([]json.RawMessage, error) {
	items, data, err := d.parse(date)
	if err == nil {
		return items, nil
	}
	if data == nil {
		return nil, err
	}

	if healErr := d.heal(d.filePath(date), data, err); healErr != nil {
		return nil, healErr
	}
	return nil, nil
}

// parse reads and decodes a shard. On a decode failure it returns the raw
// bytes alongside the error; on an I/O failure data is nil.
func (d *dir) parse(date Date) (items []json.RawMessage, data []byte, err error) {
	path := d.filePath(date)

	data, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read shard %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, nil
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, data, err
	}
	return items, nil, nil
}

// heal preserves the unparseable contents next to the shard and resets the
// shard to an empty array. The caller holds the shard lock.
func (d *dir) heal(path string, data []byte, cause error) error {
	backup, err := writeBackup(path, data)
	if err != nil {
		return fmt.Errorf("failed to back up corrupted shard %s: %w", path, err)
	}

	d.logger.Warn("shard corrupted, resetting",
		"shard", filepath.Base(path),
		"backup", filepath.Base(backup),
		"error", cause)

	if err := writeAtomic(path, []byte("[]")); err != nil {
		return fmt.Errorf("failed to reset corrupted shard %s: %w", path, err)
	}

	return nil
}

// writeBackup stores data at path.corrupted, or at path.corrupted.<n> when
// earlier backups exist. Existing backups are never overwritten.
func writeBackup(path string, data []byte) (string, error) {
	for n := 0; n < maxBackups; n++ {
		backup := path + CorruptedSuffix
		if n > 0 {
			backup += "." + strconv.Itoa(n)
		}

		f, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(backup)
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(backup)
			return "", err
		}
		return backup, nil
	}

	return "", fmt.Errorf("%w: %s", ErrTooManyBackups, path)
}

// Write implements Dir.Write.
func (d *dir) Write(date Date, items []json.RawMessage) error {
	if items == nil {
		items = []json.RawMessage{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode shard %s: %w", date, err)
	}

	if err := writeAtomic(d.filePath(date), data); err != nil {
		return fmt.Errorf("failed to write shard %s: %w", date, err)
	}

	return nil
}

// Remove implements Dir.Remove.
func (d *dir) Remove(date Date) error {
	err := os.Remove(d.filePath(date))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove shard %s: %w", date, err)
	}
	return nil
}

// Lock implements Dir.Lock.
func (d *dir) Lock(date Date) func() {
	d.mu.Lock()
	m, ok := d.locks[date]
	if !ok {
		m = &sync.Mutex{}
		d.locks[date] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (d *dir) filePath(date Date) string {
	return filepath.Join(d.path, date.FileName())
}

// ParseFileName extracts the date from a shard file name such as
// sessions_2024-05-01.json.
func ParseFileName(name string) (Date, error) {
	if !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileSuffix) {
		return Date{}, fmt.Errorf("%w: %s", ErrInvalidFileName, name)
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileSuffix)
	date, err := ParseDate(raw)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %s", ErrInvalidFileName, name)
	}

	return date, nil
}

// writeAtomic writes data to a temp file in the same directory and renames
// it over path, so readers never observe a partially written shard.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
