// Package storage publishes uploaded media and returns the public URL.
//
// Two backends implement Uploader:
//
//	S3   → any S3-compatible bucket (AWS, MinIO, LocalStack)
//	Disk → a local directory the server itself serves under /media/
//
// Whatever goes wrong inside a backend, callers see ErrUploadFailed. The
// underlying cause is wrapped alongside it for the logs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/xid"

	"github.com/sakif/music-server/internal/upload"
)

var ErrUploadFailed = errors.New("failed to upload file")

// Uploader stores one buffered file under folder and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, file *upload.File) (string, error)
}

func uploadFailed(err error) error {
	return fmt.Errorf("%w: %v", ErrUploadFailed, err)
}

// objectKey builds "folder/<xid><ext>". The extension comes from the client's
// filename when it has one, otherwise from the sniffed content type.
func objectKey(folder string, file *upload.File, detected *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" && detected != nil {
		ext = detected.Extension()
	}
	return path.Join(folder, xid.New().String()+ext)
}

// detect sniffs the content type from the file header. The client's claim is
// only a fallback.
func detect(file *upload.File) (*mimetype.MIME, string) {
	m, err := mimetype.DetectFile(file.Path)
	if err != nil || m.Is("application/octet-stream") {
		if file.ContentType != "" {
			return m, file.ContentType
		}
		return m, "application/octet-stream"
	}
	return m, m.String()
}
