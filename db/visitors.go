package db

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// VisitorRecord is the aggregate visit counter with its timestamp history.
type VisitorRecord struct {
	Count      int      `json:"count"`
	Timestamps []string `json:"timestamps"`
}

func emptyVisitorRecord() VisitorRecord {
	return VisitorRecord{Count: 0, Timestamps: []string{}}
}

// VisitorStore persists a VisitorRecord as a gob-encoded file that is read,
// mutated and rewritten whole on every visit. Concurrent processes sharing the
// file can lose updates; the last writer wins.
type VisitorStore struct {
	path string
	mu   sync.Mutex
}

func NewVisitorStore(path string) (*VisitorStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create visitor dir: %w", err)
		}
	}
	return &VisitorStore{path: path}, nil
}

func (s *VisitorStore) Path() string { return s.path }

func (s *VisitorStore) Load(_ context.Context) (VisitorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// RecordVisit increments the counter and appends the visit time.
func (s *VisitorStore) RecordVisit(_ context.Context, at time.Time) (VisitorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return VisitorRecord{}, err
	}
	rec.Count++
	rec.Timestamps = append(rec.Timestamps, at.Format(TimestampLayout))
	if err := s.save(rec); err != nil {
		return VisitorRecord{}, err
	}
	return rec, nil
}

func (s *VisitorStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(emptyVisitorRecord())
}

func (s *VisitorStore) load() (VisitorRecord, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return emptyVisitorRecord(), nil
	}
	if err != nil {
		return VisitorRecord{}, fmt.Errorf("open visitor file: %w", err)
	}
	defer file.Close()

	var rec VisitorRecord
	if err := gob.NewDecoder(file).Decode(&rec); err != nil {
		return VisitorRecord{}, fmt.Errorf("decode visitor file %s: %w", s.path, err)
	}
	if rec.Timestamps == nil {
		rec.Timestamps = []string{}
	}
	return rec, nil
}

func (s *VisitorStore) save(rec VisitorRecord) error {
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("write visitor file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(rec); err != nil {
		file.Close()
		return fmt.Errorf("encode visitor file: %w", err)
	}
	return file.Close()
}
