package scans

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/thoraxsense/internal/domain/history"
	domain "github.com/bryanwahyu/thoraxsense/internal/domain/scans"
	"github.com/bryanwahyu/thoraxsense/internal/infra/db/memory"
	"github.com/bryanwahyu/thoraxsense/internal/infra/sessions"
)

type stubDiagnoser struct {
	rec   *domain.DiagnosticRecord
	err   error
	delay time.Duration
}

func (s *stubDiagnoser) Diagnose(ctx context.Context, _ *domain.ImageHandle) (*domain.DiagnosticRecord, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rec, nil
}

type stubFallback struct{ rec *domain.DiagnosticRecord }

func (s *stubFallback) Generate(context.Context) *domain.DiagnosticRecord { return s.rec }

func realRecord() *domain.DiagnosticRecord {
	return &domain.DiagnosticRecord{
		Disease:         "Pneumonia",
		Confidence:      "91.2%",
		Findings:        []string{"x"},
		Recommendations: []string{"y"},
		Source:          domain.SourceInference,
		ProducedAt:      time.Now(),
	}
}

func demoRecord() *domain.DiagnosticRecord {
	return &domain.DiagnosticRecord{
		Disease:         "Normal",
		Confidence:      "92%",
		Findings:        []string{"clear"},
		Recommendations: []string{"none"},
		Source:          domain.SourceFallback,
		ProducedAt:      time.Now(),
	}
}

func newService(d domain.Diagnoser, repo history.Repository) *Service {
	return &Service{
		Sessions:  sessions.New(time.Minute),
		Diagnoser: d,
		Fallback:  &stubFallback{rec: demoRecord()},
		History:   repo,
		Clock:     SystemClock{},
	}
}

func upload(tenant string) StartScanCommand {
	return StartScanCommand{
		TenantID: tenant,
		FileName: "chest.png",
		MimeType: "image/png",
		File:     bytes.NewReader([]byte("fake-xray")),
	}
}

func waitReady(t *testing.T, svc *Service, tenant string) *domain.ScanSession {
	t.Helper()
	var sess *domain.ScanSession
	require.Eventually(t, func() bool {
		sess = svc.Session(context.Background(), tenant)
		return sess.State == domain.StateReady
	}, 2*time.Second, 10*time.Millisecond)
	return sess
}

func TestStartScan_SuccessReachesReady(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{rec: realRecord()}, repo)
	ctx := context.Background()

	res, err := svc.StartScan(ctx, upload("t1"))
	require.NoError(t, err)
	require.NotEmpty(t, res.ScanID)
	require.Equal(t, string(domain.StateUploading), res.State)

	sess := waitReady(t, svc, "t1")
	require.NotNil(t, sess.Record)
	require.Equal(t, "Pneumonia", sess.Record.Disease)
	require.Equal(t, "91.2%", sess.Record.Confidence)
	require.Equal(t, domain.SourceInference, sess.Record.Source)
	require.Empty(t, sess.ErrorNote)
	require.NotNil(t, sess.Image)

	// entry riwayat ikut tersimpan
	require.Eventually(t, func() bool {
		n, _ := repo.Count(ctx, "t1")
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartScan_UnreachableFallsBack(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{err: fmt.Errorf("%w: dial tcp refused", domain.ErrUnreachable)}, repo)

	_, err := svc.StartScan(context.Background(), upload("t1"))
	require.NoError(t, err)

	sess := waitReady(t, svc, "t1")
	require.NotNil(t, sess.Record)
	require.Equal(t, domain.SourceFallback, sess.Record.Source)
	require.Contains(t, sess.ErrorNote, "Could not reach")
}

func TestStartScan_RejectedNoteCarriesReason(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{err: fmt.Errorf("%w: image too blurry", domain.ErrRejected)}, repo)

	_, err := svc.StartScan(context.Background(), upload("t1"))
	require.NoError(t, err)

	sess := waitReady(t, svc, "t1")
	require.Equal(t, domain.SourceFallback, sess.Record.Source)
	require.Contains(t, sess.ErrorNote, "image too blurry")
}

func TestStartScan_SecondUploadWhileInFlightIsRejected(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{rec: realRecord(), delay: 200 * time.Millisecond}, repo)
	ctx := context.Background()

	_, err := svc.StartScan(ctx, upload("t1"))
	require.NoError(t, err)

	_, err = svc.StartScan(ctx, upload("t1"))
	require.ErrorIs(t, err, domain.ErrScanInFlight)

	// tenant lain tidak terpengaruh
	_, err = svc.StartScan(ctx, upload("t2"))
	require.NoError(t, err)
}

func TestStartScan_NilFileIsNoOp(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{rec: realRecord()}, repo)
	ctx := context.Background()

	_, err := svc.StartScan(ctx, StartScanCommand{TenantID: "t1"})
	require.ErrorIs(t, err, domain.ErrEmptyImage)

	sess := svc.Session(ctx, "t1")
	require.Equal(t, domain.StateIdle, sess.State)
	require.Nil(t, sess.Image)
	require.Nil(t, sess.Record)
}

func TestNewScan_ClearsImageAndRecordTogether(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{rec: realRecord()}, repo)
	ctx := context.Background()

	_, err := svc.StartScan(ctx, upload("t1"))
	require.NoError(t, err)
	waitReady(t, svc, "t1")

	sess, err := svc.NewScan(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, domain.StateIdle, sess.State)
	require.Nil(t, sess.Image)
	require.Nil(t, sess.Record)
	require.Empty(t, sess.ErrorNote)
}

func TestNewScan_RejectedWhileLoading(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{rec: realRecord(), delay: 200 * time.Millisecond}, repo)
	ctx := context.Background()

	_, err := svc.StartScan(ctx, upload("t1"))
	require.NoError(t, err)

	_, err = svc.NewScan(ctx, "t1")
	require.ErrorIs(t, err, domain.ErrScanInFlight)
}

func TestPipeline_StaleResultIsDropped(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{rec: realRecord(), delay: 100 * time.Millisecond}, repo)
	ctx := context.Background()

	_, err := svc.StartScan(ctx, upload("t1"))
	require.NoError(t, err)

	// sesi hilang (mis. TTL habis) sebelum pipeline selesai
	svc.Sessions.Delete(ctx, "t1")

	time.Sleep(300 * time.Millisecond)
	sess := svc.Session(ctx, "t1")
	require.Equal(t, domain.StateIdle, sess.State)

	n, err := repo.Count(ctx, "t1")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSwitchView_FreeTransitions(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{rec: realRecord()}, repo)
	ctx := context.Background()

	// tanpa record: history boleh, ready tidak
	sess, err := svc.SwitchView(ctx, "t1", domain.StateHistory)
	require.NoError(t, err)
	require.Equal(t, domain.StateHistory, sess.State)

	_, err = svc.SwitchView(ctx, "t1", domain.StateReady)
	require.ErrorIs(t, err, domain.ErrNoRecord)

	_, err = svc.SwitchView(ctx, "t1", domain.StateUploading)
	require.ErrorIs(t, err, domain.ErrBadState)

	// setelah ada hasil: bolak-balik bebas, record tidak hilang
	_, err = svc.StartScan(ctx, upload("t1"))
	require.NoError(t, err)
	waitReady(t, svc, "t1")

	sess, err = svc.SwitchView(ctx, "t1", domain.StateHistory)
	require.NoError(t, err)
	require.NotNil(t, sess.Record)

	sess, err = svc.SwitchView(ctx, "t1", domain.StateReady)
	require.NoError(t, err)
	require.Equal(t, domain.StateReady, sess.State)
	require.Equal(t, "Pneumonia", sess.Record.Disease)
}

func TestSwitchView_RejectedWhileLoading(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{rec: realRecord(), delay: 200 * time.Millisecond}, repo)
	ctx := context.Background()

	_, err := svc.StartScan(ctx, upload("t1"))
	require.NoError(t, err)

	_, err = svc.SwitchView(ctx, "t1", domain.StateHistory)
	require.ErrorIs(t, err, domain.ErrScanInFlight)
}

func TestNotify_FiresOnReady(t *testing.T) {
	repo := memory.NewHistoryRepository()
	svc := newService(&stubDiagnoser{err: fmt.Errorf("%w: down", domain.ErrUnreachable)}, repo)

	var fallbackCount atomic.Int64
	svc.Notify = func(src domain.Source) {
		if src == domain.SourceFallback {
			fallbackCount.Add(1)
		}
	}

	_, err := svc.StartScan(context.Background(), upload("t1"))
	require.NoError(t, err)
	waitReady(t, svc, "t1")

	require.Eventually(t, func() bool {
		return fallbackCount.Load() == 1
	}, time.Second, 10*time.Millisecond)
}
