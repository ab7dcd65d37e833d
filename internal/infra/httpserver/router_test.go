package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appscans "github.com/bryanwahyu/thoraxsense/internal/application/scans"
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
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rec, nil
}

type stubFallback struct{}

func (stubFallback) Generate(context.Context) *domain.DiagnosticRecord {
	return &domain.DiagnosticRecord{
		Disease:         "Normal",
		Confidence:      "92%",
		Findings:        []string{"clear"},
		Recommendations: []string{"none"},
		Source:          domain.SourceFallback,
		ProducedAt:      time.Now(),
	}
}

func newTestServer(t *testing.T, d domain.Diagnoser) *httptest.Server {
	t.Helper()
	svc := &appscans.Service{
		Sessions:  sessions.New(time.Minute),
		Diagnoser: d,
		Fallback:  stubFallback{},
		History:   memory.NewHistoryRepository(),
		Clock:     appscans.SystemClock{},
	}
	srv := httptest.NewServer(NewRouter(svc, 10<<20, nil))
	t.Cleanup(srv.Close)
	return srv
}

func scanUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="chest.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-xray"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func postScan(t *testing.T, srv *httptest.Server, tenant string) *http.Response {
	t.Helper()
	body, ct := scanUpload(t)
	resp, err := http.Post(srv.URL+"/v1/"+tenant+"/scans", ct, body)
	require.NoError(t, err)
	return resp
}

func currentSession(t *testing.T, srv *httptest.Server, tenant string) (map[string]any, bool) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/v1/" + tenant + "/scans/current")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Session map[string]any `json:"session"`
		Loading bool           `json:"loading"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Session, out.Loading
}

func waitState(t *testing.T, srv *httptest.Server, tenant, want string) map[string]any {
	t.Helper()
	var sess map[string]any
	require.Eventually(t, func() bool {
		sess, _ = currentSession(t, srv, tenant)
		return sess["state"] == want
	}, 2*time.Second, 10*time.Millisecond)
	return sess
}

func TestUploadFlow_SuccessPath(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{rec: &domain.DiagnosticRecord{
		Disease:         "Pneumonia",
		Confidence:      "91.2%",
		Findings:        []string{"x"},
		Recommendations: []string{"y"},
		Source:          domain.SourceInference,
		ProducedAt:      time.Now(),
	}})

	resp := postScan(t, srv, "demo")
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var queued struct {
		ScanID string `json:"scan_id"`
		State  string `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&queued))
	require.NotEmpty(t, queued.ScanID)
	require.Equal(t, "uploading", queued.State)

	sess := waitState(t, srv, "demo", "ready")
	record := sess["record"].(map[string]any)
	require.Equal(t, "Pneumonia", record["disease"])
	require.Equal(t, "91.2%", record["confidence"])
	require.Equal(t, "inference", record["source"])

	_, loading := currentSession(t, srv, "demo")
	require.False(t, loading)

	// entry riwayat bisa diambil by id
	require.Eventually(t, func() bool {
		r, err := http.Get(srv.URL + "/v1/demo/scans/" + queued.ScanID)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		return r.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUploadFlow_FallbackPath(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{err: fmt.Errorf("%w: down", domain.ErrUnreachable)})

	resp := postScan(t, srv, "demo")
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	sess := waitState(t, srv, "demo", "ready")
	record := sess["record"].(map[string]any)
	require.Equal(t, "fallback", record["source"])
	require.NotEmpty(t, sess["error_note"])
}

func TestUpload_MissingFileIsBadRequestAndNoTransition(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{})

	resp, err := http.Post(srv.URL+"/v1/demo/scans", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sess, loading := currentSession(t, srv, "demo")
	require.Equal(t, "idle", sess["state"])
	require.False(t, loading)
}

func TestUpload_SecondWhileInFlightConflicts(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{
		rec:   stubFallback{}.Generate(context.Background()),
		delay: 300 * time.Millisecond,
	})

	resp1 := postScan(t, srv, "demo")
	resp1.Body.Close()
	require.Equal(t, http.StatusAccepted, resp1.StatusCode)

	resp2 := postScan(t, srv, "demo")
	resp2.Body.Close()
	require.Equal(t, http.StatusConflict, resp2.StatusCode)
}

func TestNewScan_ResetsToIdle(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{rec: stubFallback{}.Generate(context.Background())})

	resp := postScan(t, srv, "demo")
	resp.Body.Close()
	waitState(t, srv, "demo", "ready")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/demo/scans/current", nil)
	require.NoError(t, err)
	dresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer dresp.Body.Close()
	require.Equal(t, http.StatusOK, dresp.StatusCode)

	var sess map[string]any
	require.NoError(t, json.NewDecoder(dresp.Body).Decode(&sess))
	require.Equal(t, "idle", sess["state"])
	require.Nil(t, sess["record"])
	require.Nil(t, sess["image"])
}

func TestHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{rec: stubFallback{}.Generate(context.Background())})

	resp := postScan(t, srv, "demo")
	resp.Body.Close()
	waitState(t, srv, "demo", "ready")

	require.Eventually(t, func() bool {
		r, err := http.Get(srv.URL + "/v1/demo/scans/latest?limit=5")
		if err != nil {
			return false
		}
		defer r.Body.Close()
		var list []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
			return false
		}
		return len(list) == 1
	}, 2*time.Second, 10*time.Millisecond)

	r, err := http.Get(srv.URL + "/v1/demo/summary?days=7")
	require.NoError(t, err)
	defer r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)

	var summary map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&summary))
	require.EqualValues(t, 1, summary["total_scans"])
}

func postView(t *testing.T, srv *httptest.Server, tenant, state string) *http.Response {
	t.Helper()
	body := bytes.NewBufferString(fmt.Sprintf(`{"state":%q}`, state))
	resp, err := http.Post(srv.URL+"/v1/"+tenant+"/scans/current/view", "application/json", body)
	require.NoError(t, err)
	return resp
}

func TestSwitchViewEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{rec: stubFallback{}.Generate(context.Background())})

	// belum ada hasil → tab ready ditolak
	resp := postView(t, srv, "t1", "ready")
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postView(t, srv, "t1", "bogus")
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postView(t, srv, "t1", "history")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sess map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	require.Equal(t, "history", sess["state"])

	// setelah scan selesai, tab ready boleh
	postScan(t, srv, "t1").Body.Close()
	waitState(t, srv, "t1", "ready")

	resp = postView(t, srv, "t1", "history")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postView(t, srv, "t1", "ready")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBadTenantIsRejected(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{})

	resp, err := http.Get(srv.URL + "/v1/bad%20tenant/scans/current")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBanner(t *testing.T) {
	srv := newTestServer(t, &stubDiagnoser{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "ThoraxSense API running", out["message"])
}
