package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateScanID validates scan ID format (uuid + suffix)
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return fmt.Errorf("scan ID cannot be empty")
	}

	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-.+$`
	matched, _ := regexp.MatchString(pattern, scanID)
	if !matched {
		return fmt.Errorf("invalid scan ID format")
	}
	return nil
}

// ValidateImageUpload cek content type dan ukuran upload. Hanya pagar di tepi
// HTTP; core workflow sengaja tidak peduli tipe file.
func ValidateImageUpload(contentType string, size, maxBytes int64) error {
	if size <= 0 {
		return fmt.Errorf("uploaded file is empty")
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("uploaded file exceeds %d bytes limit", maxBytes)
	}
	// octet-stream / kosong dibiarkan lolos; core yang sniff isi file
	if contentType != "" && contentType != "application/octet-stream" &&
		!strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("file must be an image, got %s", contentType)
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}

// ValidatePageSize clamps page size for history pagination
func ValidatePageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}
