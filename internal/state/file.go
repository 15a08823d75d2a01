package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

type fileRecord struct {
	LastAlertTime string `json:"last_alert_time"`
}

// FileStore keeps the alert state in a small JSON file on scratch storage.
// The file may be wiped between runs; absence or corruption reads as the
// default epoch.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore constructs a file-backed store at the given path.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "state_file").Logger(),
	}
}

// LoadLastAlertTime reads the persisted timestamp, falling back to the
// default epoch on any failure.
func (s *FileStore) LoadLastAlertTime(ctx context.Context) time.Time {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("state read failed; assuming never alerted")
		}
		return DefaultEpoch
	}

	var record fileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("state file corrupt; assuming never alerted")
		return DefaultEpoch
	}

	ts, err := time.Parse(time.RFC3339, record.LastAlertTime)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("state timestamp unparseable; assuming never alerted")
		return DefaultEpoch
	}

	return ts
}

// SaveLastAlertTime writes the timestamp, replacing any previous record.
func (s *FileStore) SaveLastAlertTime(ctx context.Context, ts time.Time) error {
	record := fileRecord{LastAlertTime: ts.UTC().Format(time.RFC3339)}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal state record: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
