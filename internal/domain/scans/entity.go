package scans

import (
	"time"
)

// ID tipe untuk Scan
type ScanID string

// WorkflowState enum
type WorkflowState string

const (
	StateIdle              WorkflowState = "idle"
	StateUploading         WorkflowState = "uploading"
	StateAwaitingInference WorkflowState = "awaiting_inference"
	StateReady             WorkflowState = "ready"
	StateHistory           WorkflowState = "history"
)

// Loading reports whether an inference/fallback call is still outstanding.
func (s WorkflowState) Loading() bool {
	return s == StateUploading || s == StateAwaitingInference
}

// Source enum: asal DiagnosticRecord
type Source string

const (
	SourceInference Source = "inference"
	SourceFallback  Source = "fallback"
)

// ImageHandle value object: hasil baca file upload.
// Diganti utuh tiap scan baru, tidak pernah dimutasi in place.
type ImageHandle struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Data     []byte `json:"-"`
	DataURI  string `json:"data_uri,omitempty"`
}

// DiagnosticRecord hasil analisa, asli atau sintetis.
// Confidence sudah berupa display text: satu digit desimal + "%" untuk hasil asli,
// integer + "%" untuk hasil fallback.
type DiagnosticRecord struct {
	Disease         string    `json:"disease"`
	Confidence      string    `json:"confidence"`
	Findings        []string  `json:"findings"`
	Recommendations []string  `json:"recommendations"`
	Source          Source    `json:"source"`
	ProducedAt      time.Time `json:"produced_at"`
}

// Aggregate Root: ScanSession, satu sesi scan aktif per tenant.
// Hanya Workflow Controller yang boleh mutasi session.
type ScanSession struct {
	ScanID      ScanID            `json:"scan_id,omitempty"`
	TenantID    string            `json:"tenant_id"`
	State       WorkflowState     `json:"state"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Image       *ImageHandle      `json:"image,omitempty"`
	Record      *DiagnosticRecord `json:"record,omitempty"`
	// ErrorNote is the user-visible connectivity note set before a fallback
	// record is substituted. Empty on the success path.
	ErrorNote  string `json:"error_note,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// NewIdleSession session kosong untuk tenant
func NewIdleSession(tenant string) *ScanSession {
	return &ScanSession{TenantID: tenant, State: StateIdle}
}
