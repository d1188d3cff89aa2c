package resumes

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"resume-builder/internal/shared/storage/kv"
	"resume-builder/internal/shared/telemetry"
)

// Storage keys inside one namespace.
const (
	KeyResumes = "resumes"
	KeyDraft   = "form-draft"
	KeyTheme   = "theme"
)

// Store is the newest-first record collection kept as one JSON array under KeyResumes.
// Mutations read the whole array, change it and write it back while holding mu.
type Store struct {
	kv kv.Store
	mu sync.Mutex
}

// NewStore wraps a namespaced key-value backend.
func NewStore(backend kv.Store) *Store {
	return &Store{kv: backend}
}

// List returns every record, newest first. Absent or malformed data reads as empty.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Prepend stores record at position 0.
func (s *Store) Prepend(ctx context.Context, record Record) error {
	if record.ID == "" {
		return fmt.Errorf("%w: record id required", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == record.ID {
			return ErrDuplicateID
		}
	}
	next := make([]Record, 0, len(records)+1)
	next = append(next, record)
	next = append(next, records...)
	return s.save(ctx, next)
}

// Delete removes the record with id and reports whether one was removed. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	next := make([]Record, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(records) {
		return false, nil
	}
	return true, s.save(ctx, next)
}

func (s *Store) load(ctx context.Context) ([]Record, error) {
	raw, ok, err := s.kv.Get(ctx, KeyResumes)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if !ok || raw == "" {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		telemetry.Warn("resumes.malformed", map[string]any{"key": KeyResumes, "error": err.Error()})
		return []Record{}, nil
	}
	for i := range records {
		normalize(&records[i])
	}
	return records, nil
}

func (s *Store) save(ctx context.Context, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.kv.Set(ctx, KeyResumes, string(data)); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

// normalize fills nil slices so older or hand-edited entries render like fresh ones.
func normalize(r *Record) {
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.Links == nil {
		r.Links = []string{}
	}
	if r.Experiences == nil {
		r.Experiences = []Experience{}
	}
}
