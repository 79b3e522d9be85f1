package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

const manifestExt = ".manifest.json"

// Manifest records how a conversation's index files were built. The
// searcher reads it to pick the tokenizer queries are normalised with.
type Manifest struct {
	Conversation string    `json:"conversation"`
	Language     string    `json:"language"`
	Formats      []string  `json:"formats"`
	Documents    int       `json:"documents"`
	Terms        int       `json:"terms"`
	BuiltAt      time.Time `json:"built_at"`
}

func (s *Store) manifestPath(name string) (string, error) {
	// Reuse the name checks of Path.
	if _, err := s.Path(name, config.FormatText); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+manifestExt), nil
}

// SaveManifest atomically replaces name's manifest.
func (s *Store) SaveManifest(m Manifest) error {
	path, err := s.manifestPath(m.Conversation)
	if err != nil {
		return err
	}
	err = writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
	if err != nil {
		return fmt.Errorf("saving manifest for %s: %w", m.Conversation, err)
	}
	return nil
}

// LoadManifest returns ErrIndexNotFound when name has no manifest.
func (s *Store) LoadManifest(name string) (Manifest, error) {
	path, err := s.manifestPath(name)
	if err != nil {
		return Manifest{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, path)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest %s: %v", apperrors.ErrCorruptIndex, path, err)
	}
	return m, nil
}
