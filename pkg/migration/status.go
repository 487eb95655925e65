package migration

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
)

// DefaultVersion is written to new status files.
const DefaultVersion = "1.0.0"

// Status is the persisted migration state.
type Status struct {
	Migrated      bool       `json:"migrated"`
	MigrationDate *time.Time `json:"migrationDate,omitempty"`
	Version       string     `json:"version"`
}

func defaultStatus() Status {
	return Status{Version: DefaultVersion}
}

// StatusStore records whether data has been moved to the document backend.
//
// The state lives in memory and is mirrored to a small JSON file. A missing or
// unreadable file yields the default (not migrated) state, and failed writes
// are logged and otherwise ignored, so no method ever returns an error. An
// override forces IsMigrated to true regardless of the file.
type StatusStore struct {
	path     string
	override bool
	logger   zerolog.Logger

	mu     sync.RWMutex
	status Status
}

var _ store.StatusReader = (*StatusStore)(nil)

// NewStatusStore loads the status from path.
func NewStatusStore(path string, override bool, logger zerolog.Logger) *StatusStore {
	s := &StatusStore{
		path:     path,
		override: override,
		logger:   logger.With().Str("component", "migration_status").Logger(),
		status:   defaultStatus(),
	}
	s.load()
	return s
}

func (s *StatusStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to read migration status, using default")
		}
		return
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Corrupt migration status file, using default")
		return
	}
	if status.Version == "" {
		status.Version = DefaultVersion
	}
	s.status = status
}

// save writes the current status. Callers hold s.mu.
func (s *StatusStore) save() {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Error().Err(err).Str("path", s.path).Msg("Failed to create migration status directory")
			return
		}
	}

	data, err := json.MarshalIndent(s.status, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode migration status")
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("Failed to write migration status")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("Failed to replace migration status")
		_ = os.Remove(tmp)
	}
}

// IsMigrated reports whether the document backend is authoritative.
func (s *StatusStore) IsMigrated() bool {
	if s.override {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Migrated
}

// DatabaseType derives the active backend from IsMigrated.
func (s *StatusStore) DatabaseType() store.DatabaseType {
	if s.IsMigrated() {
		return store.Document
	}
	return store.Relational
}

// MarkMigrated records a completed migration at the current time.
func (s *StatusStore) MarkMigrated() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.status.Migrated = true
	s.status.MigrationDate = &now
	s.save()
	s.logger.Info().Time("migration_date", now).Msg("Marked as migrated")
}

// MarkNotMigrated switches back to the relational backend and clears the
// migration date.
func (s *StatusStore) MarkNotMigrated() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Migrated = false
	s.status.MigrationDate = nil
	s.save()
	s.logger.Info().Msg("Marked as not migrated")
}

// Status returns a copy of the persisted state.
func (s *StatusStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	if status.MigrationDate != nil {
		date := *status.MigrationDate
		status.MigrationDate = &date
	}
	return status
}

// Override reports whether the environment forces the document backend.
func (s *StatusStore) Override() bool {
	return s.override
}
