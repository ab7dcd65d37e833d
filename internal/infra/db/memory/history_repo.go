package memory

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/thoraxsense/internal/domain/history"
)

// HistoryRepository in-memory, dipakai kalau database.driver = none.
// Save selalu sukses (ack stub); data hilang saat proses berhenti.
type HistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]*domain.Entry // tenant -> entries
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{entries: make(map[string][]*domain.Entry)}
}

// Seed isi baris demo (dipakai saat start di mode demo)
func (r *HistoryRepository) Seed(entries []*domain.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.TenantID] = append(r.entries[e.TenantID], e)
	}
}

func (r *HistoryRepository) Save(_ context.Context, e *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[e.TenantID]
	for i, old := range list {
		if old.ID == e.ID {
			list[i] = e
			return nil
		}
	}
	r.entries[e.TenantID] = append(list, e)
	return nil
}

func (r *HistoryRepository) Get(_ context.Context, tenant string, id domain.EntryID) (*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries[tenant] {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *HistoryRepository) Latest(_ context.Context, tenant string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	out := r.sorted(tenant)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *HistoryRepository) Summary(_ context.Context, tenant string, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var s domain.Summary
	for _, e := range r.entries[tenant] {
		if e.ScannedAt.Before(cut) {
			continue
		}
		s.TotalScans++
		switch e.Disease {
		case "Pneumonia":
			s.Pneumonia++
		case "Tuberculosis":
			s.Tuberculosis++
		case "Normal":
			s.Normal++
		}
		if e.Source == "fallback" {
			s.Fallback++
		}
	}
	return s, nil
}

func (r *HistoryRepository) Paginate(_ context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	all := r.sorted(tenant)
	total := int64(len(all))

	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	return domain.PaginatedResult{
		Data:       all[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (r *HistoryRepository) Count(_ context.Context, tenant string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.entries[tenant])), nil
}

// sorted snapshot terbaru dulu
func (r *HistoryRepository) sorted(tenant string) []*domain.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Entry, 0, len(r.entries[tenant]))
	for _, e := range r.entries[tenant] {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScannedAt.Equal(out[j].ScannedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].ScannedAt.After(out[j].ScannedAt)
	})
	return out
}
