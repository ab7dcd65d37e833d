package scans

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// header PNG minimal, cukup untuk sniffing
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestAcquireImage_KeepsDeclaredImageMime(t *testing.T) {
	img, err := AcquireImage("chest.jpg", "image/jpeg", bytes.NewReader([]byte("fake-jpeg")))
	require.NoError(t, err)
	require.Equal(t, "chest.jpg", img.FileName)
	require.Equal(t, "image/jpeg", img.MimeType)
	require.Equal(t, int64(9), img.Size)
	require.True(t, strings.HasPrefix(img.DataURI, "data:image/jpeg;base64,"))
}

func TestAcquireImage_SniffsWhenMimeMissing(t *testing.T) {
	img, err := AcquireImage("scan", "", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, "image/png", img.MimeType)
}

func TestAcquireImage_EmptyUpload(t *testing.T) {
	_, err := AcquireImage("empty", "image/png", bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrEmptyImage)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestAcquireImage_ReadFailureIsReported(t *testing.T) {
	_, err := AcquireImage("broken", "image/png", failingReader{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
}
