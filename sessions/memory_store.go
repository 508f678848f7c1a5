package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-appauth/core"
)

// MemoryStore is an in-process core.SessionStore for tests and single
// process deployments that do not need durable sessions.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]core.SessionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]core.SessionRecord{}}
}

func (s *MemoryStore) Save(_ context.Context, record core.SessionRecord) error {
	if record.ID == "" {
		return ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = cloneSessionRecord(record)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (core.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return core.SessionRecord{}, ErrNoSession
	}
	return cloneSessionRecord(record), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.records {
		if !record.ExpiresAt.IsZero() && !record.ExpiresAt.After(before) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) SessionIDsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, record := range s.records {
		if record.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) ClearForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.records {
		if record.UserID == userID {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) CountForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, record := range s.records {
		if record.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DumpAll(_ context.Context) ([]core.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]core.SessionRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, cloneSessionRecord(record))
	}
	return records, nil
}

func cloneSessionRecord(record core.SessionRecord) core.SessionRecord {
	if record.Data == nil {
		return record
	}
	data := make(map[string]any, len(record.Data))
	for key, value := range record.Data {
		data[key] = value
	}
	record.Data = data
	return record
}
