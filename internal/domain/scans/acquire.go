package scans

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AcquireImage reads the uploaded file to completion and builds the ImageHandle.
// The declared mime type is kept when it looks like an image; otherwise the
// content is sniffed. Read failures are reported, not swallowed.
func AcquireImage(filename, declaredMime string, r io.Reader) (*ImageHandle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload %q: %w", filename, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	mime := declaredMime
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}

	return &ImageHandle{
		FileName: filename,
		MimeType: mime,
		Size:     int64(len(data)),
		Data:     data,
		DataURI:  fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)),
	}, nil
}
