// Package store provides the subject catalogue: the static dataset of known
// subjects the engine filters against. The catalogue is SQLite-backed so
// user-imported datasets survive between runs; a seed dataset ships embedded
// in the binary for first use.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"telepath/internal/logging"
	"telepath/internal/types"

	_ "modernc.org/sqlite"
)

// Schema versions:
// v1: subjects table (name, category, fictional, facts, attributes)
// v2: dataset_version column on subjects for provenance
const CurrentSchemaVersion = 2

// SubjectStore is the SQLite-backed subject catalogue. Read paths are safe
// for concurrent use; writes happen only through Import.
type SubjectStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewSubjectStore opens (or creates) the catalogue at path and applies
// schema migrations.
func NewSubjectStore(path string) (*SubjectStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSubjectStore")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &SubjectStore{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	logging.Store("Subject catalogue open at %s", path)
	return s, nil
}

// Close closes the underlying database.
func (s *SubjectStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *SubjectStore) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`); err != nil {
		return err
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		version = 0
	} else if err != nil {
		return err
	}

	if version < 1 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS subjects (
				name        TEXT PRIMARY KEY,
				category    TEXT NOT NULL DEFAULT '',
				fictional   INTEGER NOT NULL DEFAULT 0,
				facts       TEXT NOT NULL DEFAULT '[]',
				attributes  TEXT NOT NULL DEFAULT '{}'
			)`); err != nil {
			return err
		}
	}
	if version < 2 {
		// Column may already exist on partially migrated databases.
		if _, err := s.db.Exec(`ALTER TABLE subjects ADD COLUMN dataset_version TEXT NOT NULL DEFAULT ''`); err != nil {
			if !strings.Contains(err.Error(), "duplicate column") {
				logging.StoreDebug("dataset_version migration: %v", err)
			}
		}
	}

	if version != CurrentSchemaVersion {
		if _, err := s.db.Exec("DELETE FROM schema_version"); err != nil {
			return err
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", CurrentSchemaVersion); err != nil {
			return err
		}
		logging.Store("Migrated subject catalogue schema v%d -> v%d", version, CurrentSchemaVersion)
	}
	return nil
}

// Import upserts subjects into the catalogue under the given dataset version.
func (s *SubjectStore) Import(subjects []types.Subject, datasetVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO subjects (name, category, fictional, facts, attributes, dataset_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			category = excluded.category,
			fictional = excluded.fictional,
			facts = excluded.facts,
			attributes = excluded.attributes,
			dataset_version = excluded.dataset_version`)
	if err != nil {
		return fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	for _, sub := range subjects {
		facts, err := json.Marshal(sub.Facts)
		if err != nil {
			return fmt.Errorf("failed to encode facts for %q: %w", sub.Name, err)
		}
		attrs, err := json.Marshal(sub.Attributes)
		if err != nil {
			return fmt.Errorf("failed to encode attributes for %q: %w", sub.Name, err)
		}
		fictional := 0
		if sub.Fictional {
			fictional = 1
		}
		if _, err := stmt.Exec(sub.Name, sub.Category, fictional, string(facts), string(attrs), datasetVersion); err != nil {
			return fmt.Errorf("failed to import %q: %w", sub.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	logging.Store("Imported %d subjects (dataset %s)", len(subjects), datasetVersion)
	return nil
}

// LoadAll returns every subject in the catalogue, sorted by name.
func (s *SubjectStore) LoadAll() ([]types.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT name, category, fictional, facts, attributes FROM subjects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []types.Subject
	for rows.Next() {
		var sub types.Subject
		var fictional int
		var facts, attrs string
		if err := rows.Scan(&sub.Name, &sub.Category, &fictional, &facts, &attrs); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		sub.Fictional = fictional != 0
		if err := json.Unmarshal([]byte(facts), &sub.Facts); err != nil {
			return nil, fmt.Errorf("corrupt facts for %q: %w", sub.Name, err)
		}
		if err := json.Unmarshal([]byte(attrs), &sub.Attributes); err != nil {
			return nil, fmt.Errorf("corrupt attributes for %q: %w", sub.Name, err)
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// Count returns the number of catalogued subjects.
func (s *SubjectStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM subjects").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subjects: %w", err)
	}
	return n, nil
}

// Lookup returns the subject with the given name, matched case-insensitively.
func (s *SubjectStore) Lookup(name string) (types.Subject, bool, error) {
	all, err := s.LoadAll()
	if err != nil {
		return types.Subject{}, false, err
	}
	for _, sub := range all {
		if strings.EqualFold(sub.Name, name) {
			return sub, true, nil
		}
	}
	return types.Subject{}, false, nil
}

// SortByName sorts subjects in place; helper for deterministic output.
func SortByName(subjects []types.Subject) {
	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].Name < subjects[j].Name
	})
}
