// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/pdiddy/link-engine/internal/atomicfile"
	"github.com/pdiddy/link-engine/internal/corpus"
)

// HashStore maps corpus-relative book paths to the content hash recorded
// when the book was last linked successfully. An entry is only ever written
// after the book's artifacts are complete, so a missing or stale entry
// means the book still needs linking.
type HashStore struct {
	path string

	mu     sync.Mutex
	hashes map[string]string
	dirty  bool
}

// LoadStore reads the store at path. A missing file yields an empty store.
func LoadStore(path string) (*HashStore, error) {
	s := &HashStore{path: path, hashes: make(map[string]string)}
	var raw map[string]string
	if err := atomicfile.ReadJSON(path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("loading hash store: %w", err)
	}
	for k, v := range raw {
		s.hashes[corpus.Clean(k)] = v
	}
	return s, nil
}

// Path returns the file the store persists to.
func (s *HashStore) Path() string { return s.path }

// Get returns the recorded hash of rel.
func (s *HashStore) Get(rel string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[corpus.Clean(rel)]
	return h, ok
}

// Set records hash for rel.
func (s *HashStore) Set(rel, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[corpus.Clean(rel)] = hash
	s.dirty = true
}

// Delete forgets rel.
func (s *HashStore) Delete(rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel = corpus.Clean(rel)
	if _, ok := s.hashes[rel]; ok {
		delete(s.hashes, rel)
		s.dirty = true
	}
}

// Rename moves the entry for from to to, keeping its hash. It reports
// whether from had an entry.
func (s *HashStore) Rename(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to = corpus.Clean(from), corpus.Clean(to)
	h, ok := s.hashes[from]
	if !ok {
		return false
	}
	delete(s.hashes, from)
	s.hashes[to] = h
	s.dirty = true
	return true
}

// Keys returns every recorded path, sorted.
func (s *HashStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.hashes))
	for k := range s.hashes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (s *HashStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashes)
}

// Save writes the store atomically. It is a no-op when nothing changed
// since the last load or save.
func (s *HashStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := atomicfile.WriteJSON(s.path, s.hashes); err != nil {
		return fmt.Errorf("saving hash store: %w", err)
	}
	s.dirty = false
	return nil
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
