package youtube

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// fallbackContentType is used when neither the extension nor the content
// identifies the file.
const fallbackContentType = "video/mp4"

// sniffLen is how many leading bytes http.DetectContentType looks at.
const sniffLen = 512

// videoTypes covers common container extensions missing from Go's built-in
// MIME table.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".3gp":  "video/3gpp",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
}

// Media is the file being uploaded. Reader is read with ReadAt so a resumed
// transfer can start from any offset.
type Media struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.ReaderAt

	closer io.Closer
}

// OpenMedia opens a local file for upload. The caller must Close it.
func OpenMedia(path string) (*Media, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("youtube: opening media: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("youtube: stat media: %w", err)
	}

	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("youtube: media %s is a directory", path)
	}

	ct, err := detectContentType(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Media{
		Name:        filepath.Base(path),
		ContentType: ct,
		Size:        info.Size(),
		Reader:      f,
		closer:      f,
	}, nil
}

// Close releases the underlying file, if any.
func (m *Media) Close() error {
	if m.closer == nil {
		return nil
	}

	return m.closer.Close()
}

// detectContentType tries the extension, then the leading bytes, then falls
// back to video/mp4.
func detectContentType(path string, r io.ReaderAt) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if ct, ok := videoTypes[ext]; ok {
		return ct, nil
	}

	if ct := mime.TypeByExtension(ext); ct != "" && ct != "application/octet-stream" {
		return ct, nil
	}

	head := make([]byte, sniffLen)

	n, err := r.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("youtube: reading media header: %w", err)
	}

	if ct := http.DetectContentType(head[:n]); ct != "application/octet-stream" && !strings.HasPrefix(ct, "text/plain") {
		return ct, nil
	}

	return fallbackContentType, nil
}
