package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/thoraxsense/internal/domain/history"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save insert/update history entry
func (r *HistoryRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO scan_history
(id, tenant_id, scanned_at, disease, confidence, source,
 findings, recommendations, image_url, duration_ms)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 disease=VALUES(disease), confidence=VALUES(confidence), source=VALUES(source),
 findings=VALUES(findings), recommendations=VALUES(recommendations),
 image_url=VALUES(image_url), duration_ms=VALUES(duration_ms);
`
	tenant := stringOrDash(e.TenantID)
	disease := stringOrDash(e.Disease)
	scanned := e.ScannedAt
	if scanned.IsZero() {
		scanned = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		e.ID, tenant, scanned, disease, e.Confidence, e.Source,
		encodeList(e.Findings), encodeList(e.Recommendations),
		e.ImageURL, e.DurationMS,
	)
	return err
}

// Get by ID + Tenant
func (r *HistoryRepository) Get(ctx context.Context, tenant string, id domain.EntryID) (*domain.Entry, error) {
	const q = `
SELECT id, tenant_id, scanned_at, disease, confidence, source,
       findings, recommendations, image_url, duration_ms
FROM scan_history
WHERE tenant_id=? AND id=? LIMIT 1;
`
	return scanRow(r.db.QueryRowContext(ctx, q, tenant, id))
}

// Latest entries per tenant
func (r *HistoryRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, scanned_at, disease, confidence, source,
       findings, recommendations, image_url, duration_ms
FROM scan_history
WHERE tenant_id=? ORDER BY scanned_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Summary rekap diagnosa N hari terakhir
func (r *HistoryRepository) Summary(ctx context.Context, tenant string, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*) AS total_scans,
       COALESCE(SUM(disease='Pneumonia'),0)    AS pneumonia,
       COALESCE(SUM(disease='Tuberculosis'),0) AS tuberculosis,
       COALESCE(SUM(disease='Normal'),0)       AS normal,
       COALESCE(SUM(source='fallback'),0)      AS fallback
FROM scan_history
WHERE tenant_id=? AND scanned_at >= ?;
`
	var s domain.Summary
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(
		&s.TotalScans, &s.Pneumonia, &s.Tuberculosis, &s.Normal, &s.Fallback,
	); err != nil {
		return domain.Summary{}, err
	}
	return s, nil
}

// Paginate with offset + limit (classic pagination)
func (r *HistoryRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, tenant_id, scanned_at, disease, confidence, source,
       findings, recommendations, image_url, duration_ms
FROM scan_history
WHERE tenant_id=? ORDER BY scanned_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries, err := collect(rows)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("scanning rows: %w", err)
	}

	total, err := r.Count(ctx, tenant)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       entries,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Count returns the total number of history entries for a tenant
func (r *HistoryRepository) Count(ctx context.Context, tenant string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scan_history WHERE tenant_id = ?", tenant,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*domain.Entry, error) {
	var e domain.Entry
	var findings, recommendations string
	if err := row.Scan(
		&e.ID, &e.TenantID, &e.ScannedAt, &e.Disease, &e.Confidence, &e.Source,
		&findings, &recommendations, &e.ImageURL, &e.DurationMS,
	); err != nil {
		return nil, err
	}
	e.Findings = decodeList(findings)
	e.Recommendations = decodeList(recommendations)
	return &e, nil
}

func collect(rows *sql.Rows) ([]*domain.Entry, error) {
	var out []*domain.Entry
	for rows.Next() {
		e, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
