package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_NotifiesOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	ctx := context.Background()

	s, err := NewFileStore(FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := s.Store(ctx, KeyToken, "tok-1"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	changed := make(chan struct{}, 1)
	w := NewWatcher(s, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, WithWatchDebounce(10*time.Millisecond))
	w.StartAsync()
	defer w.Stop()

	// Give the directory watch time to attach.
	time.Sleep(100 * time.Millisecond)

	// Another process rewrites the file.
	other, err := NewFileStore(FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore(other) error = %v", err)
	}
	if err := other.Store(ctx, KeyToken, "tok-2"); err != nil {
		t.Fatalf("Store(other) error = %v", err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the external write")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s, err := NewFileStore(FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	w := NewWatcher(s, func() {})
	w.StartAsync()

	w.Stop()
	w.Stop()
}
