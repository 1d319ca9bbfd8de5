package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/music-server/internal/upload"
)

var _ Uploader = (*Disk)(nil)

// MediaPrefix is the URL path the server mounts Disk.Root under.
const MediaPrefix = "/media/"

// Disk copies uploads into a local directory.
type Disk struct {
	root    string
	baseURL string
}

// NewDisk stores files under root; URLs are baseURL + /media/ + key.
func NewDisk(root, baseURL string) *Disk {
	return &Disk{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Root is the directory to serve under MediaPrefix.
func (d *Disk) Root() string {
	return d.root
}

func (d *Disk) Upload(ctx context.Context, folder string, file *upload.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", uploadFailed(err)
	}

	detected, _ := detect(file)
	key := objectKey(folder, file, detected)
	dst := filepath.Join(d.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", uploadFailed(err)
	}

	if err := copyFile(file.Path, dst); err != nil {
		_ = os.Remove(dst)
		return "", uploadFailed(err)
	}

	return d.baseURL + MediaPrefix + key, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
