package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

type pgSentRecordRepository struct {
	pool *pgxpool.Pool
}

// NewPgSentRecordRepository returns a SentRecordRepository backed by PostgreSQL.
func NewPgSentRecordRepository(pool *pgxpool.Pool) SentRecordRepository {
	return &pgSentRecordRepository{pool: pool}
}

func (r *pgSentRecordRepository) Insert(ctx context.Context, rec domain.SentRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sent_records
			(id, fingerprint, source, title, sent_at, recipient, success, error_message, attempts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Key, rec.Source, rec.Title, rec.SentAt,
		nullable(rec.Recipient), rec.Success, nullable(rec.Error), rec.Attempts,
	)
	if err != nil {
		return fmt.Errorf("insert sent record: %w", err)
	}
	return nil
}

func (r *pgSentRecordRepository) List(ctx context.Context, f domain.ArchiveFilter) ([]domain.SentRecord, int, error) {
	f.Normalize()
	where, args := buildArchiveWhere(f)
	offset := (f.Page - 1) * f.Limit

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sent_records"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sent records: %w", err)
	}

	args = append(args, f.Limit, offset)
	query := fmt.Sprintf(`
		SELECT id, fingerprint, source, title, sent_at, recipient, success, error_message, attempts
		FROM sent_records%s
		ORDER BY sent_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sent records: %w", err)
	}
	defer rows.Close()

	var records []domain.SentRecord
	for rows.Next() {
		rec, err := scanSentRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// ---- helpers ----

func scanSentRecord(row pgx.Row) (domain.SentRecord, error) {
	var (
		rec       domain.SentRecord
		recipient *string
		errMsg    *string
	)
	err := row.Scan(
		&rec.ID, &rec.Key, &rec.Source, &rec.Title, &rec.SentAt,
		&recipient, &rec.Success, &errMsg, &rec.Attempts,
	)
	if err != nil {
		return domain.SentRecord{}, err
	}
	if recipient != nil {
		rec.Recipient = *recipient
	}
	if errMsg != nil {
		rec.Error = *errMsg
	}
	return rec, nil
}

func buildArchiveWhere(f domain.ArchiveFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Source != nil {
		add("source = $%d", *f.Source)
	}
	if f.Success != nil {
		add("success = $%d", *f.Success)
	}
	if f.From != nil {
		add("sent_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("sent_at <= $%d", *f.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
