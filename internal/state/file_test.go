package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFileStoreDefaultWhenMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"), testLogger())

	got := store.LoadLastAlertTime(context.Background())
	if !got.Equal(DefaultEpoch) {
		t.Fatalf("missing file must read as default epoch, got %s", got)
	}
}

func TestFileStoreDefaultWhenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path, testLogger())

	got := store.LoadLastAlertTime(context.Background())
	if !got.Equal(DefaultEpoch) {
		t.Fatalf("corrupt file must read as default epoch, got %s", got)
	}
}

func TestFileStoreDefaultWhenTimestampInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"last_alert_time":"yesterday"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path, testLogger())

	got := store.LoadLastAlertTime(context.Background())
	if !got.Equal(DefaultEpoch) {
		t.Fatalf("unparseable timestamp must read as default epoch, got %s", got)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFileStore(path, testLogger())

	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if err := store.SaveLastAlertTime(context.Background(), ts); err != nil {
		t.Fatalf("save should succeed: %v", err)
	}

	got := store.LoadLastAlertTime(context.Background())
	if !got.Equal(ts) {
		t.Fatalf("expected %s back, got %s", ts, got)
	}
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, testLogger())

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(4 * time.Hour)

	if err := store.SaveLastAlertTime(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveLastAlertTime(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	if got := store.LoadLastAlertTime(context.Background()); !got.Equal(second) {
		t.Fatalf("expected latest timestamp %s, got %s", second, got)
	}
}
