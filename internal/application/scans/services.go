package scans

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/thoraxsense/internal/domain/history"
	domain "github.com/bryanwahyu/thoraxsense/internal/domain/scans"
)

// Service implements use-cases untuk scan workflow.
// Service is designed to be used concurrently and is thread-safe: every
// session transition happens under mu, so the background pipeline and the
// HTTP handlers never interleave half-applied state.
type Service struct {
	Sessions  domain.SessionStore
	Diagnoser domain.Diagnoser
	Fallback  domain.Fallback
	History   history.Repository
	Images    domain.ImageStore
	Clock     Clock

	// Notify optional: dipanggil tiap workflow mencapai Ready (untuk metrics).
	Notify func(source domain.Source)

	mu sync.Mutex
}

// Clock abstraction supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

//
// ==== USE CASES ====
//

// Command untuk mulai scan baru
type StartScanCommand struct {
	TenantID string
	FileName string
	MimeType string
	File     io.Reader
}

type StartScanResult struct {
	ScanID   string    `json:"scan_id"`
	State    string    `json:"state"`
	QueuedAt time.Time `json:"queued_at"`
}

// StartScan baca file upload → buka sesi Uploading → jalankan pipeline di
// background. A second upload while one is in flight is rejected with
// ErrScanInFlight; the caller polls Session() to observe progress.
func (s *Service) StartScan(ctx context.Context, cmd StartScanCommand) (StartScanResult, error) {
	if cmd.File == nil {
		// selection cancelled: no-op, workflow stays where it was
		return StartScanResult{}, domain.ErrEmptyImage
	}

	img, err := domain.AcquireImage(cmd.FileName, cmd.MimeType, cmd.File)
	if err != nil {
		return StartScanResult{}, err
	}

	now := s.Clock.Now()
	id := domain.ScanID(fmt.Sprintf("%s-xray", uuid.New().String()))

	s.mu.Lock()
	if cur, ok := s.Sessions.Get(ctx, cmd.TenantID); ok && cur.State.Loading() {
		s.mu.Unlock()
		return StartScanResult{}, domain.ErrScanInFlight
	}
	sess := &domain.ScanSession{
		ScanID:    id,
		TenantID:  cmd.TenantID,
		State:     domain.StateUploading,
		StartedAt: now,
		Image:     img,
	}
	s.Sessions.Save(ctx, sess)
	s.mu.Unlock()

	// 🚀 Jalankan di background, biar jalan sampai selesai
	go s.diagnoseUntilDone(cmd.TenantID, id, img)

	return StartScanResult{ScanID: string(id), State: string(domain.StateUploading), QueuedAt: now}, nil
}

// diagnoseUntilDone runs inference → (fallback) → Ready with
// context.Background() supaya gak kena context canceled dari request.
func (s *Service) diagnoseUntilDone(tenant string, id domain.ScanID, img *domain.ImageHandle) {
	ctx := context.Background()
	start := s.Clock.Now()

	rec, err := s.Diagnoser.Diagnose(ctx, img)
	if err != nil {
		log.Printf("inference failed for tenant=%s scan=%s: %v", tenant, id, err)
		if !s.transition(ctx, tenant, id, func(sess *domain.ScanSession) {
			sess.State = domain.StateAwaitingInference
			sess.ErrorNote = noteFor(err)
		}) {
			return
		}
		rec = s.Fallback.Generate(ctx)
	}

	done := s.Clock.Now()
	var snapshot domain.ScanSession
	if !s.transition(ctx, tenant, id, func(sess *domain.ScanSession) {
		sess.Record = rec
		sess.State = domain.StateReady
		sess.CompletedAt = done
		sess.DurationMS = done.Sub(start).Milliseconds()
		snapshot = *sess
	}) {
		return
	}

	if s.Notify != nil {
		s.Notify(rec.Source)
	}
	s.archive(ctx, &snapshot)
}

// transition applies fn to the tenant's session only while it still belongs
// to scan id; a stale pipeline result is dropped instead of clobbering a
// newer session.
func (s *Service) transition(ctx context.Context, tenant string, id domain.ScanID, fn func(*domain.ScanSession)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.Sessions.Get(ctx, tenant)
	if !ok || sess.ScanID != id {
		log.Printf("dropping stale result for tenant=%s scan=%s", tenant, id)
		return false
	}
	fn(sess)
	s.Sessions.Save(ctx, sess)
	return true
}

// archive simpan entry riwayat + arsip gambar. Best effort: kegagalan cuma
// dilog, workflow tetap Ready.
func (s *Service) archive(ctx context.Context, sess *domain.ScanSession) {
	var imageURL string
	if s.Images != nil && sess.Image != nil {
		key := fmt.Sprintf("%s/%s/%s", sess.TenantID, sess.Record.Disease, sess.ScanID)
		url, err := s.Images.UploadImage(ctx, key, sess.Image)
		if err != nil {
			log.Printf("image archive failed for scan=%s: %v", sess.ScanID, err)
		} else {
			imageURL = url
		}
	}

	if s.History == nil {
		return
	}
	entry := &history.Entry{
		ID:              history.EntryID(sess.ScanID),
		TenantID:        sess.TenantID,
		ScannedAt:       sess.CompletedAt,
		Disease:         sess.Record.Disease,
		Confidence:      sess.Record.Confidence,
		Source:          string(sess.Record.Source),
		Findings:        sess.Record.Findings,
		Recommendations: sess.Record.Recommendations,
		ImageURL:        imageURL,
		DurationMS:      sess.DurationMS,
	}
	if err := s.History.Save(ctx, entry); err != nil {
		log.Printf("history save failed for scan=%s: %v", sess.ScanID, err)
	}
}

// Session snapshot sesi aktif; tenant tanpa sesi dianggap Idle.
func (s *Service) Session(ctx context.Context, tenant string) *domain.ScanSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.Sessions.Get(ctx, tenant)
	if !ok {
		return domain.NewIdleSession(tenant)
	}
	cp := *sess
	return &cp
}

// NewScan reset ke Idle: ImageHandle dan DiagnosticRecord dibuang bersama.
func (s *Service) NewScan(ctx context.Context, tenant string) (*domain.ScanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.Sessions.Get(ctx, tenant); ok && sess.State.Loading() {
		return nil, domain.ErrScanInFlight
	}
	idle := domain.NewIdleSession(tenant)
	s.Sessions.Save(ctx, idle)
	cp := *idle
	return &cp, nil
}

// SwitchView pindah tab tanpa side effect: idle/ready/history saja.
// Tab hasil cuma boleh dibuka kalau record-nya memang ada.
func (s *Service) SwitchView(ctx context.Context, tenant string, target domain.WorkflowState) (*domain.ScanSession, error) {
	switch target {
	case domain.StateIdle, domain.StateReady, domain.StateHistory:
	default:
		return nil, domain.ErrBadState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.Sessions.Get(ctx, tenant)
	if !ok {
		sess = domain.NewIdleSession(tenant)
	}
	if sess.State.Loading() {
		return nil, domain.ErrScanInFlight
	}
	if target == domain.StateReady && sess.Record == nil {
		return nil, domain.ErrNoRecord
	}
	sess.State = target
	s.Sessions.Save(ctx, sess)
	cp := *sess
	return &cp, nil
}

// Latest ambil N entry riwayat terakhir
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*history.Entry, error) {
	return s.History.Latest(ctx, tenant, limit)
}

// GetEntry ambil 1 entry riwayat by id
func (s *Service) GetEntry(ctx context.Context, tenant string, id history.EntryID) (*history.Entry, error) {
	return s.History.Get(ctx, tenant, id)
}

// Summary rekap riwayat N hari terakhir
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (history.Summary, error) {
	return s.History.Summary(ctx, tenant, sinceDays)
}

// Paginate riwayat scan per halaman
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int) (history.PaginatedResult, error) {
	return s.History.Paginate(ctx, tenant, page, pageSize)
}

// helper: catatan koneksi yang dilihat user sebelum hasil demo disubstitusi
func noteFor(err error) string {
	if errors.Is(err, domain.ErrRejected) {
		return fmt.Sprintf("Analysis service rejected the scan (%v). Showing a demo result instead.", err)
	}
	return "Could not reach the analysis service. Showing a demo result instead."
}
