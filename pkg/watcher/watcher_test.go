package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xmhha/session-analytics/pkg/logger"
	"github.com/0xmhha/session-analytics/pkg/shard"
)

const shardName = "sessions_2024-05-01.json"

func startWatcher(t *testing.T, dir string, debounce time.Duration) Watcher {
	t.Helper()

	w, err := New(Config{DebounceInterval: debounce}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Logf("Close() error = %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := w.Start(ctx, dir); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	return w
}

func waitEvent(t *testing.T, w Watcher) Event {
	t.Helper()

	select {
	case event := <-w.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for shard event")
	}
	return Event{}
}

// drainEvents drains all pending events from a channel.
func drainEvents(ch <-chan Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestNew(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w == nil {
		t.Fatal("New() returned nil watcher")
	}
	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}
}

func TestStartInvalidPath(t *testing.T) {
	tmpDir := t.TempDir()

	file := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(tmpDir, "nonexistent"), file} {
		w, err := New(Config{}, logger.Noop())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		if startErr := w.Start(context.Background(), path); !errors.Is(startErr, ErrInvalidPath) {
			t.Errorf("Start(%s) error = %v, want ErrInvalidPath", path, startErr)
		}
		w.Close()
	}
}

func TestStartAlreadyStarted(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, tmpDir, 50*time.Millisecond)

	if err := w.Start(context.Background(), tmpDir); err != ErrAlreadyStarted {
		t.Errorf("Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestShardCreate(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, tmpDir, 50*time.Millisecond)

	testFile := filepath.Join(tmpDir, shardName)
	if err := os.WriteFile(testFile, []byte("[]"), 0600); err != nil {
		t.Fatalf("Failed to create shard: %v", err)
	}

	event := waitEvent(t, w)
	if event.Path != testFile {
		t.Errorf("Event path = %s, want %s", event.Path, testFile)
	}
	if event.Op != OpCreate && event.Op != OpWrite {
		t.Errorf("Event op = %s, want CREATE or WRITE", event.Op)
	}
	want := shard.Date{Year: 2024, Month: time.May, Day: 1}
	if event.Date != want {
		t.Errorf("Event date = %s, want %s", event.Date, want)
	}
}

func TestShardAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()

	dir, err := shard.Open(tmpDir, logger.Noop())
	if err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, tmpDir, 50*time.Millisecond)

	day := shard.Date{Year: 2024, Month: time.May, Day: 1}
	if err := dir.Write(day, nil); err != nil {
		t.Fatal(err)
	}

	event := waitEvent(t, w)
	if filepath.Base(event.Path) != shardName {
		t.Errorf("Event path = %s, want %s (temp file leaked through)", event.Path, shardName)
	}
	if event.Date != day {
		t.Errorf("Event date = %s, want %s", event.Date, day)
	}
}

func TestShardRemove(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, shardName)
	if err := os.WriteFile(testFile, []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, tmpDir, 50*time.Millisecond)

	if err := os.Remove(testFile); err != nil {
		t.Fatalf("Failed to delete shard: %v", err)
	}

	event := waitEvent(t, w)
	if event.Op != OpRemove {
		t.Errorf("Event op = %s, want REMOVE", event.Op)
	}
}

func TestDebouncing(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, shardName)
	if err := os.WriteFile(testFile, []byte("[]"), 0600); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, tmpDir, 200*time.Millisecond)
	drainEvents(w.Events())

	// Rapid modifications, closer together than the debounce interval.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(testFile, []byte("[]"), 0600); err != nil {
			t.Fatalf("Failed to write shard: %v", err)
		}
		time.Sleep(30 * time.Millisecond)
	}

	eventCount := 0
	timeout := time.After(time.Second)
loop:
	for {
		select {
		case <-w.Events():
			eventCount++
		case <-timeout:
			break loop
		}
	}

	if eventCount == 0 {
		t.Error("No events received")
	}
	if eventCount >= 5 {
		t.Errorf("Received %d events for 5 rapid writes, debouncing not working", eventCount)
	}
}

func TestNonShardFilesIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, tmpDir, 50*time.Millisecond)

	for _, name := range []string{
		"notes.txt",
		"index.db",
		shardName + shard.CorruptedSuffix,
		"." + shardName + ".tmp-123",
	} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case event := <-w.Events():
		t.Errorf("Received unexpected event for non-shard file: %+v", event)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestStop(t *testing.T) {
	tmpDir := t.TempDir()
	w := startWatcher(t, tmpDir, 50*time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != ErrNotStarted {
		t.Errorf("second Stop() error = %v, want ErrNotStarted", err)
	}

	// A stopped watcher can be started again.
	if err := w.Start(context.Background(), tmpDir); err != nil {
		t.Errorf("Start() after Stop error = %v", err)
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
		{Op(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op.String() = %s, want %s", got, tt.want)
		}
	}
}

func TestStopNotStarted(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if stopErr := w.Stop(); stopErr != ErrNotStarted {
		t.Errorf("Stop() error = %v, want ErrNotStarted", stopErr)
	}
}

func TestCloseTwice(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("First Close() error = %v", closeErr)
	}
	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Second Close() error = %v", closeErr)
	}
}

func TestStartAfterClose(t *testing.T) {
	w, err := New(Config{}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if closeErr := w.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}

	if startErr := w.Start(context.Background(), t.TempDir()); startErr != ErrWatcherClosed {
		t.Errorf("Start() error = %v, want ErrWatcherClosed", startErr)
	}
}
