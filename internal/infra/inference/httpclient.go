package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	domain "github.com/bryanwahyu/thoraxsense/internal/domain/scans"
)

// HTTPClient implementasi Diagnoser: POST multipart ke endpoint inference
// eksternal (field "file"), parse respons sukses/gagal.
type HTTPClient struct {
	endpoint string
	httpc    *http.Client
}

func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// wire shape dari service inference
type predictResponse struct {
	Success         bool     `json:"success"`
	Disease         string   `json:"disease"`
	Confidence      float64  `json:"confidence"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
	Error           string   `json:"error"`
}

func (c *HTTPClient) Diagnose(ctx context.Context, img *domain.ImageHandle) (*domain.DiagnosticRecord, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	name := img.FileName
	if name == "" {
		name = "scan"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrUnreachable, err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrUnreachable, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrUnreachable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrUnreachable, resp.StatusCode, body)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrUnreachable, err)
	}

	if !out.Success {
		reason := out.Error
		if reason == "" {
			reason = "analysis failed"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRejected, reason)
	}
	// respons sukses wajib lengkap; yang bolong dianggap malformed
	if out.Disease == "" || len(out.Findings) == 0 || len(out.Recommendations) == 0 ||
		out.Confidence < 0 || out.Confidence > 100 {
		return nil, fmt.Errorf("%w: malformed success response", domain.ErrUnreachable)
	}

	return &domain.DiagnosticRecord{
		Disease:         out.Disease,
		Confidence:      fmt.Sprintf("%.1f%%", out.Confidence),
		Findings:        out.Findings,
		Recommendations: out.Recommendations,
		Source:          domain.SourceInference,
		ProducedAt:      time.Now(),
	}, nil
}
