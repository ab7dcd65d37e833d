package scans

import (
	"context"
)

// Diagnoser port (interface untuk inference service eksternal).
// Implementations must return ErrRejected or ErrUnreachable (wrapped) on failure
// so the Workflow Controller can pick the fallback path.
type Diagnoser interface {
	Diagnose(ctx context.Context, img *ImageHandle) (*DiagnosticRecord, error)
}

// Fallback port: pembangkit hasil sintetis. Never fails, always returns a
// complete record with Source = SourceFallback.
type Fallback interface {
	Generate(ctx context.Context) *DiagnosticRecord
}

// SessionStore port (interface untuk sesi scan aktif per tenant)
type SessionStore interface {
	Get(ctx context.Context, tenant string) (*ScanSession, bool)
	Save(ctx context.Context, s *ScanSession)
	Delete(ctx context.Context, tenant string)
}

// ImageStore port (interface untuk arsip gambar scan)
type ImageStore interface {
	UploadImage(ctx context.Context, key string, img *ImageHandle) (string, error)
}
