package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the file store's document inside its directory.
const FileName = "environments.yaml"

type fileEntry struct {
	StoredAt time.Time `yaml:"stored_at"`
	Lines    []string  `yaml:"lines"`
}

type fileDoc struct {
	Environments map[string]fileEntry `yaml:"environments"`
}

// FileStore keeps every listing in one YAML document. The document is read
// once when the store is opened and rewritten on every change.
type FileStore struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries map[string]fileEntry
	logger  *log.Logger
}

// OpenFile opens (creating if needed) the file store in dir.
func OpenFile(dir string, ttl time.Duration, logger *log.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file cache: no directory configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	s := &FileStore{
		path:    filepath.Join(dir, FileName),
		ttl:     ttl,
		entries: make(map[string]fileEntry),
		logger:  logger,
	}
	if err := s.load(); err != nil {
		// A corrupt cache only costs a re-query.
		logger.Warn("ignoring unreadable cache file", "path", s.path, "err", err)
		s.entries = make(map[string]fileEntry)
	}
	return s, nil
}

// Path returns the location of the cache document.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache file: %w", err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing cache file: %w", err)
	}
	if doc.Environments != nil {
		s.entries = doc.Environments
	}
	return nil
}

// save writes the document to a temp file first, then renames it.
func (s *FileStore) save() error {
	data, err := yaml.Marshal(fileDoc{Environments: s.entries})
	if err != nil {
		return fmt.Errorf("encoding cache file: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, env string) (Lookup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[env]
	if !ok || expired(e.StoredAt, s.ttl) {
		return Miss, nil
	}
	return Lookup{Lines: append([]string(nil), e.Lines...), Hit: true, StoredAt: e.StoredAt}, nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, env string, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[env] = fileEntry{StoredAt: time.Now().UTC(), Lines: append([]string(nil), lines...)}
	return s.save()
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, envs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, env := range envs {
		delete(s.entries, env)
	}
	return s.save()
}

// Clear implements Store.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]fileEntry)
	return s.save()
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
