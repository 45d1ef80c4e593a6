// Package history keeps a local record of searches run and reports
// generated from this machine, so `task search --history` can recall and
// re-run past queries without another trip to the backend.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskdeck-dev/taskdeck/internal/api"
)

// Entry kinds.
const (
	KindSearch = "search"
	KindReport = "report"
)

// Entry is one recorded action.
type Entry struct {
	ID          string    `gorm:"primaryKey;type:varchar(26)"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	Kind        string    `gorm:"type:varchar(16);not null;index"`
	Summary     string    `gorm:"type:text;not null"`
	Payload     string    `gorm:"type:text"` // JSON-encoded filters
	ResultCount int
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	return nil
}

// Store is the sqlite-backed history store.
type Store struct {
	db *gorm.DB
}

// DefaultPath returns ~/.config/taskdeck/history.sqlite, creating the
// directory if needed.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".config", "taskdeck")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return filepath.Join(dir, "history.sqlite"), nil
}

// Open opens (and migrates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordSearch stores a search and the number of results it returned.
func (s *Store) RecordSearch(filters api.SearchFilters, resultCount int) error {
	payload, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	entry := Entry{
		Kind:        KindSearch,
		Summary:     summarizeFilters(filters),
		Payload:     string(payload),
		ResultCount: resultCount,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// RecordReport stores a generated report reference.
func (s *Store) RecordReport(templateName, reportID string) error {
	entry := Entry{
		Kind:    KindReport,
		Summary: fmt.Sprintf("%s (report %s)", templateName, reportID),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record report: %w", err)
	}
	return nil
}

// Recent returns the latest entries of one kind, newest first.
func (s *Store) Recent(kind string, limit int) ([]Entry, error) {
	var entries []Entry
	err := s.db.Where("kind = ?", kind).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}

// Filters decodes the stored search filters of an entry.
func (e *Entry) Filters() (api.SearchFilters, error) {
	var filters api.SearchFilters
	if e.Payload == "" {
		return filters, nil
	}
	if err := json.Unmarshal([]byte(e.Payload), &filters); err != nil {
		return filters, fmt.Errorf("failed to decode filters: %w", err)
	}
	return filters, nil
}

func summarizeFilters(f api.SearchFilters) string {
	summary := f.Query
	if f.Department != "" {
		summary += " dept=" + f.Department
	}
	if f.Status != "" {
		summary += " status=" + f.Status
	}
	if f.Priority != "" {
		summary += " priority=" + f.Priority
	}
	if summary == "" {
		summary = "(all tasks)"
	}
	return summary
}
