// Package store keeps one index file per conversation and format under a
// data directory: <name>.pii.txt for the text format and <name>.pii.bin for
// binary segments.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

var extensions = map[string]string{
	config.FormatText:   ".pii.txt",
	config.FormatBinary: ".pii.bin",
}

type Store struct {
	dir    string
	logger *slog.Logger
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: slog.Default().With("component", "index-store", "dir", dir),
	}, nil
}

func (s *Store) Dir() string { return s.dir }

// Path returns the file holding name's index in format.
func (s *Store) Path(name, format string) (string, error) {
	ext, ok := extensions[format]
	if !ok {
		return "", fmt.Errorf("%w: unknown index format %q", apperrors.ErrInvalidInput, format)
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid conversation name %q", apperrors.ErrInvalidInput, name)
	}
	return filepath.Join(s.dir, name+ext), nil
}

// Save writes idx in every requested format. Each file is written to a
// temporary sibling and renamed into place, so readers never observe a
// partial index.
func (s *Store) Save(name string, idx *index.Index, formats ...string) error {
	if len(formats) == 0 {
		return fmt.Errorf("%w: no index format requested", apperrors.ErrInvalidInput)
	}
	for _, format := range formats {
		path, err := s.Path(name, format)
		if err != nil {
			return err
		}
		write := segment.Write
		if format == config.FormatText {
			write = codec.WriteText
		}
		start := time.Now()
		if err := writeAtomic(path, func(w io.Writer) error { return write(w, idx) }); err != nil {
			return fmt.Errorf("saving %s index for %s: %w", format, name, err)
		}
		s.logger.Info("index saved",
			"conversation", name,
			"format", format,
			"terms", idx.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// Load reads name's index in the given format. A missing file is
// ErrIndexNotFound even when the other format exists.
func (s *Store) Load(name, format string) (*index.Index, error) {
	path, err := s.Path(name, format)
	if err != nil {
		return nil, err
	}
	if format == config.FormatBinary {
		return segment.ReadIndex(path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()
	idx, stats, err := codec.ReadText(f)
	if err != nil {
		return nil, err
	}
	if stats.Skipped > 0 || stats.DFMismatches > 0 {
		s.logger.Warn("text index loaded with problems",
			"conversation", name,
			"skipped_lines", stats.Skipped,
			"df_mismatches", stats.DFMismatches,
			"duplicate_terms", stats.DuplicateTerms,
		)
	}
	return idx, nil
}

// Exists reports whether name has an index file in format.
func (s *Store) Exists(name, format string) bool {
	path, err := s.Path(name, format)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// List returns the sorted names of conversations with an index in any
// format.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing index directory: %w", err)
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, ext := range extensions {
			if name, ok := strings.CutSuffix(e.Name(), ext); ok && name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
