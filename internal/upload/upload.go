// Package upload validates incoming report files, names them and hands them
// to a storage backend under a year/month partitioned key.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/atinyakov/ReportDesk/internal/models"
	"github.com/google/uuid"
)

// FieldName is the multipart field carrying the file.
const FieldName = "file"

var (
	// ErrNoFile is returned when the request carries no file.
	ErrNoFile = errors.New("no file uploaded")
	// ErrUnsupportedType is returned for media types other than PDF, JPEG and PNG.
	ErrUnsupportedType = errors.New("only PDF, JPG and PNG files are allowed")
	// ErrFileTooLarge is returned when the file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// allowedTypes maps accepted declared media types to their file type tag.
var allowedTypes = map[string]models.FileType{
	"application/pdf": models.FilePDF,
	"image/jpeg":      models.FileJPG,
	"image/jpg":       models.FileJPG,
	"image/png":       models.FilePNG,
}

var defaultExt = map[models.FileType]string{
	models.FilePDF: ".pdf",
	models.FileJPG: ".jpg",
	models.FilePNG: ".png",
}

// File is an incoming upload as declared by the client.
type File struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Result locates a stored file.
type Result struct {
	// FileURL is the storage key relative to the uploads root.
	FileURL  string          `json:"fileUrl"`
	FileType models.FileType `json:"fileType"`
}

// Uploader validates files and writes them to a Storage.
type Uploader struct {
	store   Storage
	maxSize int64
	tempDir string
	now     func() time.Time
}

// NewUploader returns an Uploader rejecting files larger than maxSize bytes.
func NewUploader(store Storage, maxSize int64) *Uploader {
	return &Uploader{store: store, maxSize: maxSize, now: time.Now}
}

// MaxSize returns the configured size limit in bytes.
func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

// FileType returns the tag for a declared media type.
func FileType(contentType string) (models.FileType, bool) {
	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	ft, ok := allowedTypes[mt]
	return ft, ok
}

// Save checks the declared type, then the size, and stores the file under
// reports/<year>/<month>/<unix-ms>.<ext>.
func (u *Uploader) Save(ctx context.Context, f File) (*Result, error) {
	fileType, ok := FileType(f.ContentType)
	if !ok {
		return nil, ErrUnsupportedType
	}

	tmp, size, err := u.spool(f.Body)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	ext := path.Ext(path.Base(strings.ReplaceAll(f.Filename, `\`, "/")))
	if ext == "" || ext == "." {
		ext = defaultExt[fileType]
	}

	now := u.now()
	dir := fmt.Sprintf("reports/%d/%02d", now.Year(), int(now.Month()))
	key := fmt.Sprintf("%s/%d%s", dir, now.UnixMilli(), ext)

	err = u.store.Put(ctx, key, tmp, size, f.ContentType)
	if errors.Is(err, ErrExists) {
		// Same-millisecond collision: keep the timestamp, add a random suffix.
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind upload: %w", err)
		}
		key = fmt.Sprintf("%s/%d-%s%s", dir, now.UnixMilli(), uuid.NewString()[:8], ext)
		err = u.store.Put(ctx, key, tmp, size, f.ContentType)
	}
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	return &Result{FileURL: key, FileType: fileType}, nil
}

// spool copies body to a temporary file, failing with ErrFileTooLarge once
// more than maxSize bytes have been read.
func (u *Uploader) spool(body io.Reader) (*os.File, int64, error) {
	tmp, err := os.CreateTemp(u.tempDir, "upload-*")
	if err != nil {
		return nil, 0, fmt.Errorf("create temp file: %w", err)
	}
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, io.LimitReader(body, u.maxSize+1))
	if err != nil {
		discard()
		if isTooLarge(err) {
			return nil, 0, ErrFileTooLarge
		}
		return nil, 0, fmt.Errorf("read upload: %w", err)
	}
	if n > u.maxSize {
		discard()
		return nil, 0, ErrFileTooLarge
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		discard()
		return nil, 0, fmt.Errorf("rewind upload: %w", err)
	}
	return tmp, n, nil
}

// isTooLarge reports whether the request body hit the server's byte cap.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
