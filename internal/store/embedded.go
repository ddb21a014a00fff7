package store

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"telepath/internal/types"
)

//go:embed data/subjects.json
var seedData []byte

type seedFile struct {
	Version  string          `json:"version"`
	Subjects []types.Subject `json:"subjects"`
}

// LoadSeed returns the embedded seed dataset and its version.
func LoadSeed() ([]types.Subject, string, error) {
	var sf seedFile
	if err := json.Unmarshal(seedData, &sf); err != nil {
		return nil, "", fmt.Errorf("corrupt embedded seed dataset: %w", err)
	}
	if len(sf.Subjects) == 0 {
		return nil, "", fmt.Errorf("embedded seed dataset is empty")
	}
	return sf.Subjects, sf.Version, nil
}

// LoadCatalogue returns the full candidate store: the SQLite catalogue at
// dbPath when configured and non-empty, otherwise the embedded seed. Loaded
// once per process lifetime by callers.
func LoadCatalogue(dbPath string) ([]types.Subject, error) {
	if dbPath != "" {
		s, err := NewSubjectStore(dbPath)
		if err != nil {
			return nil, err
		}
		defer s.Close()

		n, err := s.Count()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return s.LoadAll()
		}
	}

	subjects, _, err := LoadSeed()
	return subjects, err
}
