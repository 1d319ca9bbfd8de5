// Package upload buffers multipart uploads to temp files before handlers run.
//
// FLOW:
//
//	request ─▶ Middleware ─▶ parts streamed to TEMP_DIR ─▶ *Form on context
//	                                                        │
//	handler reads FormFromContext(ctx) ◀────────────────────┘
//	handler returns ─▶ Middleware removes the temp files
//
// Files are never held in memory. Each file is capped at MaxFileBytes; a
// larger part aborts the request with apperror.ErrTooLarge.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/sakif/music-server/internal/apperror"
)

// maxValueBytes caps a plain (non-file) form field.
const maxValueBytes = 1 << 20

// File is one uploaded part, already on disk.
type File struct {
	Field       string // form field name, e.g. "audioFile"
	Filename    string // name the client sent
	ContentType string // as declared by the client; may be empty
	Path        string // temp file location
	Size        int64
}

// Open opens the buffered file for reading.
func (f *File) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// Form holds the parsed fields of one request.
// Repeated fields keep the first value.
type Form struct {
	Values map[string]string
	Files  map[string]*File

	paths []string // every temp file written, including ignored repeats
}

func (f *Form) Value(key string) string {
	if f == nil {
		return ""
	}
	return f.Values[key]
}

// File returns the uploaded file for field, or nil.
func (f *Form) File(field string) *File {
	if f == nil {
		return nil
	}
	return f.Files[field]
}

// RemoveAll deletes every temp file. Safe to call twice.
func (f *Form) RemoveAll() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, path := range f.paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type contextKey string

const formKey contextKey = "uploadForm"

// FormFromContext returns the buffered form, or nil when the request was not
// multipart (or did not pass through Middleware).
func FormFromContext(ctx context.Context) *Form {
	form, _ := ctx.Value(formKey).(*Form)
	return form
}

// WithForm stores form on ctx. Used by Middleware and by tests.
func WithForm(ctx context.Context, form *Form) context.Context {
	return context.WithValue(ctx, formKey, form)
}

// ErrorWriter renders an error response. The handler package supplies one
// so rejected uploads get the same JSON body as everything else.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

type Middleware struct {
	tempDir      string
	maxFileBytes int64
	writeError   ErrorWriter
	logger       *slog.Logger
}

func NewMiddleware(tempDir string, maxFileBytes int64, writeError ErrorWriter, logger *slog.Logger) *Middleware {
	return &Middleware{
		tempDir:      tempDir,
		maxFileBytes: maxFileBytes,
		writeError:   writeError,
		logger:       logger,
	}
}

// Handler buffers multipart/form-data bodies. Other requests pass through untouched.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType != "multipart/form-data" {
			next.ServeHTTP(w, r)
			return
		}

		form, err := m.parse(r)
		if err != nil {
			if rmErr := form.RemoveAll(); rmErr != nil {
				m.logger.Warn("removing partial upload", "error", rmErr)
			}
			m.writeError(w, r, err)
			return
		}

		defer func() {
			if err := form.RemoveAll(); err != nil {
				m.logger.Warn("removing temp upload files", "error", err)
			}
		}()

		next.ServeHTTP(w, r.WithContext(WithForm(r.Context(), form)))
	})
}

// parse always returns a non-nil form so the caller can clean up whatever
// was written before a failure.
func (m *Middleware) parse(r *http.Request) (*Form, error) {
	form := &Form{
		Values: make(map[string]string),
		Files:  make(map[string]*File),
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return form, apperror.ValidationFailed("", "malformed multipart body")
	}

	if err := os.MkdirAll(m.tempDir, 0o755); err != nil {
		return form, fmt.Errorf("creating temp dir: %w", err)
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return form, apperror.ValidationFailed("", "malformed multipart body")
		}

		field := part.FormName()
		if field == "" {
			part.Close()
			continue
		}

		if part.FileName() == "" {
			err = m.readValue(form, field, part)
		} else {
			err = m.readFile(form, field, part)
		}
		part.Close()
		if err != nil {
			return form, err
		}
	}
}

func (m *Middleware) readValue(form *Form, field string, part *multipart.Part) error {
	b, err := io.ReadAll(io.LimitReader(part, maxValueBytes+1))
	if err != nil {
		return apperror.ValidationFailed(field, "malformed multipart body")
	}
	if len(b) > maxValueBytes {
		return apperror.TooLarge(fmt.Sprintf("field %s is too large", field))
	}
	if _, exists := form.Values[field]; !exists {
		form.Values[field] = string(b)
	}
	return nil
}

func (m *Middleware) readFile(form *Form, field string, part *multipart.Part) error {
	tmp, err := os.CreateTemp(m.tempDir, tempPattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	file := &File{
		Field:       field,
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Path:        tmp.Name(),
	}

	// Tracked before copying so a failed copy is still cleaned up.
	form.paths = append(form.paths, tmp.Name())
	if _, exists := form.Files[field]; !exists {
		form.Files[field] = file
	}

	n, err := io.Copy(tmp, io.LimitReader(part, m.maxFileBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return apperror.ValidationFailed(field, "malformed multipart body")
	}
	if closeErr != nil {
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if n > m.maxFileBytes {
		return apperror.TooLarge(fmt.Sprintf("%s exceeds the %d MB limit", field, m.maxFileBytes>>20))
	}

	file.Size = n
	return nil
}

// tempPattern is the os.CreateTemp pattern; the sweeper matches on its prefix.
const tempPattern = "upload-*"

func isTempFile(name string) bool {
	return strings.HasPrefix(name, strings.TrimSuffix(tempPattern, "*"))
}
