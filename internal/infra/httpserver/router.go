package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appscans "github.com/bryanwahyu/thoraxsense/internal/application/scans"
	"github.com/bryanwahyu/thoraxsense/internal/domain/history"
	domain "github.com/bryanwahyu/thoraxsense/internal/domain/scans"
	"github.com/bryanwahyu/thoraxsense/internal/middleware"
)

type Router struct {
	scansSvc       *appscans.Service
	maxUploadBytes int64
}

func NewRouter(scansSvc *appscans.Service, maxUploadBytes int64, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{scansSvc: scansSvc, maxUploadBytes: maxUploadBytes}
	mux := chi.NewRouter()

	mux.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "ThoraxSense API running"})
	})
	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/scans", r.wrap(r.handleUpload))
		rt.Get("/scans/current", r.wrap(r.handleSession))
		rt.Delete("/scans/current", r.wrap(r.handleNewScan))
		rt.Post("/scans/current/view", r.wrap(r.handleSwitchView))
		rt.Get("/scans/latest", r.wrap(r.handleLatest))
		rt.Get("/scans", r.wrap(r.handlePaginate))
		rt.Get("/scans/{id}", r.wrap(r.handleGetEntry))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// invalidInput menandai error yang salah dari sisi client (400)
type invalidInput struct{ err error }

func (e invalidInput) Error() string { return e.err.Error() }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var bad invalidInput
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrScanInFlight):
			http.Error(w, "a scan is already in flight, wait for it to finish or reset the session", http.StatusConflict)
		case errors.Is(err, domain.ErrNoRecord):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, domain.ErrEmptyImage), errors.Is(err, domain.ErrBadState):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, middleware.ErrTenantMismatch):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.As(err, &bad):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// tenant ambil + validasi tenant dari URL dan cocokkan dengan API key
func (r *Router) tenant(req *http.Request) (string, error) {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		return "", invalidInput{err}
	}
	if err := middleware.RequireTenant(req.Context(), tenant); err != nil {
		return "", err
	}
	return tenant, nil
}

// POST /v1/{tenant}/scans
// multipart body, file di field "file". Mulai workflow scan di background.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	tenant, err := r.tenant(req)
	if err != nil {
		return err
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	file, header, err := req.FormFile("file")
	if err != nil {
		// tidak ada file yang dipilih → tidak ada transisi state
		return invalidInput{errors.New("multipart field \"file\" is required")}
	}
	defer file.Close()

	if err := middleware.ValidateImageUpload(header.Header.Get("Content-Type"), header.Size, r.maxUploadBytes); err != nil {
		return invalidInput{err}
	}

	result, err := r.scansSvc.StartScan(req.Context(), appscans.StartScanCommand{
		TenantID: tenant,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		File:     file,
	})
	if err != nil {
		return err
	}
	middleware.IncrementScansStarted()

	// 🔙 langsung balikin respons ke client; hasil dipoll lewat /scans/current
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	return json.NewEncoder(w).Encode(map[string]any{
		"scan_id":  result.ScanID,
		"state":    result.State,
		"queuedAt": result.QueuedAt,
		"message":  "scan started in background",
	})
}

// GET /v1/{tenant}/scans/current
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) error {
	tenant, err := r.tenant(req)
	if err != nil {
		return err
	}

	sess := r.scansSvc.Session(req.Context(), tenant)
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"session": sess,
		"loading": sess.State.Loading(),
	})
}

// DELETE /v1/{tenant}/scans/current → "new scan": balik ke Idle
func (r *Router) handleNewScan(w http.ResponseWriter, req *http.Request) error {
	tenant, err := r.tenant(req)
	if err != nil {
		return err
	}

	sess, err := r.scansSvc.NewScan(req.Context(), tenant)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(sess)
}

// POST /v1/{tenant}/scans/current/view {"state":"history"}
// pindah tab di sisi server, bebas dan tanpa side effect
func (r *Router) handleSwitchView(w http.ResponseWriter, req *http.Request) error {
	tenant, err := r.tenant(req)
	if err != nil {
		return err
	}

	var body struct {
		State domain.WorkflowState `json:"state"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return invalidInput{errors.New("body must be {\"state\": \"idle|ready|history\"}")}
	}

	sess, err := r.scansSvc.SwitchView(req.Context(), tenant, body.State)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(sess)
}

// GET /v1/{tenant}/scans/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant, err := r.tenant(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.scansSvc.Latest(req.Context(), tenant, limit)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/scans?page=&page_size=
func (r *Router) handlePaginate(w http.ResponseWriter, req *http.Request) error {
	tenant, err := r.tenant(req)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	size = middleware.ValidatePageSize(size)

	list, err := r.scansSvc.Paginate(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/scans/{id}
func (r *Router) handleGetEntry(w http.ResponseWriter, req *http.Request) error {
	tenant, err := r.tenant(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateScanID(id); err != nil {
		return invalidInput{err}
	}

	entry, err := r.scansSvc.GetEntry(req.Context(), tenant, history.EntryID(id))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(entry)
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant, err := r.tenant(req)
	if err != nil {
		return err
	}
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)

	summary, err := r.scansSvc.Summary(req.Context(), tenant, days)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(summary)
}
