package repository

import (
	"context"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// SentRecordRepository archives delivery audit records beyond the in-memory ring.
// The pgx implementation is in pg_sent_record_repo.go.
// Tests use a hand-written mock (mock_sent_record_repo.go).
type SentRecordRepository interface {
	Insert(ctx context.Context, rec domain.SentRecord) error
	List(ctx context.Context, filter domain.ArchiveFilter) ([]domain.SentRecord, int, error)
}
