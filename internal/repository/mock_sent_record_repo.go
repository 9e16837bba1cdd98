package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// MockSentRecordRepository is a hand-written, in-memory SentRecordRepository
// used in unit tests.
type MockSentRecordRepository struct {
	mu      sync.RWMutex
	records []domain.SentRecord

	// Optional error overrides for failure paths.
	InsertErr error
	ListErr   error
}

func NewMockSentRecordRepository() *MockSentRecordRepository {
	return &MockSentRecordRepository{}
}

func (m *MockSentRecordRepository) Insert(_ context.Context, rec domain.SentRecord) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MockSentRecordRepository) List(_ context.Context, f domain.ArchiveFilter) ([]domain.SentRecord, int, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	f.Normalize()

	m.mu.RLock()
	var matched []domain.SentRecord
	for _, rec := range m.records {
		if f.Source != nil && rec.Source != *f.Source {
			continue
		}
		if f.Success != nil && rec.Success != *f.Success {
			continue
		}
		if f.From != nil && rec.SentAt.Before(*f.From) {
			continue
		}
		if f.To != nil && rec.SentAt.After(*f.To) {
			continue
		}
		matched = append(matched, rec)
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].SentAt.After(matched[j].SentAt) })

	total := len(matched)
	start := (f.Page - 1) * f.Limit
	if start >= total {
		return []domain.SentRecord{}, total, nil
	}
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

// Len reports how many records were archived.
func (m *MockSentRecordRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
