package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Fact is one remembered piece of information about the user.
type Fact struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FactStore keeps learned facts as JSON lines in a single file. Appends
// are serialized; a partially written trailing line is skipped on read
// rather than failing the whole store.
type FactStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// NewFactStore creates a fact store at path, creating parent directories
// as needed.
func NewFactStore(fs afero.Fs, path string) (*FactStore, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create facts directory: %w", err)
	}
	return &FactStore{fs: fs, path: path}, nil
}

// Append stores a new fact. Missing ID and timestamp are filled in.
func (s *FactStore) Append(fact *Fact) error {
	if fact.ID == "" {
		fact.ID = uuid.New().String()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}

	line, err := json.Marshal(fact)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fs.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open facts file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append fact: %w", err)
	}
	return nil
}

// All returns every stored fact in insertion order. A missing file means
// no facts yet.
func (s *FactStore) All() ([]Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fs.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open facts file: %w", err)
	}
	defer f.Close()

	var facts []Fact
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fact Fact
		if err := json.Unmarshal(line, &fact); err != nil {
			// Likely a torn write at the tail; keep what parses.
			continue
		}
		facts = append(facts, fact)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return facts, nil
}

// Recent returns up to n facts, newest first.
func (s *FactStore) Recent(n int) ([]Fact, error) {
	facts, err := s.All()
	if err != nil {
		return nil, err
	}
	if len(facts) > n {
		facts = facts[len(facts)-n:]
	}
	for i, j := 0, len(facts)-1; i < j; i, j = i+1, j-1 {
		facts[i], facts[j] = facts[j], facts[i]
	}
	return facts, nil
}
