package scans

import "errors"

// ErrRejected indicates the inference service was reachable but declined to
// produce a diagnosis (success=false in the response).
var ErrRejected = errors.New("inference rejected")

// ErrUnreachable indicates a transport-level failure: endpoint down, timeout,
// or a malformed response body.
var ErrUnreachable = errors.New("inference service unreachable")

// ErrScanInFlight ditolak: masih ada scan yang jalan untuk tenant ini.
var ErrScanInFlight = errors.New("a scan is already in flight")

// ErrEmptyImage berarti file upload kosong / tidak kebaca.
var ErrEmptyImage = errors.New("empty image upload")

// ErrNoSession tidak ada sesi scan aktif untuk tenant.
var ErrNoSession = errors.New("no active scan session")

// ErrNoRecord: view hasil hanya boleh dibuka kalau sudah ada DiagnosticRecord.
var ErrNoRecord = errors.New("no diagnostic record to show")

// ErrBadState transisi view ke state yang tidak dikenal / tidak bebas.
var ErrBadState = errors.New("invalid workflow state for view switch")
