package history

import "time"

// ID tipe untuk Entry
type EntryID string

// Entry satu baris riwayat scan yang sudah selesai (hasil asli maupun fallback).
type Entry struct {
	ID              EntryID   `json:"id"`
	TenantID        string    `json:"tenant_id"`
	ScannedAt       time.Time `json:"scanned_at"`
	Disease         string    `json:"disease"`
	Confidence      string    `json:"confidence"`
	Source          string    `json:"source"`
	Findings        []string  `json:"findings"`
	Recommendations []string  `json:"recommendations"`
	ImageURL        string    `json:"image_url,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
}

// Summary rekap riwayat N hari terakhir.
type Summary struct {
	TotalScans   int `json:"total_scans"`
	Pneumonia    int `json:"pneumonia"`
	Tuberculosis int `json:"tuberculosis"`
	Normal       int `json:"normal"`
	Fallback     int `json:"fallback"`
}
