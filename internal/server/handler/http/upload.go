package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/atinyakov/ReportDesk/internal/upload"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartOverhead is the slack allowed on top of the file size for
// boundaries, part headers and small form fields.
const multipartOverhead = 1 << 20

// Uploader stores validated report files.
type Uploader interface {
	Save(ctx context.Context, f upload.File) (*upload.Result, error)
	MaxSize() int64
}

// FileStore reads stored files back.
type FileStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// UploadHandler accepts report files and serves them back under /uploads.
type UploadHandler struct {
	Uploader Uploader
	Files    FileStore
	Log      *zap.Logger
}

// Upload handles POST /api/admin/upload with a single multipart file field
// named "file". It streams the part straight to the Uploader.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Uploader.MaxSize()+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, upload.ErrNoFile.Error())
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, upload.ErrNoFile.Error())
			return
		}
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeError(w, http.StatusBadRequest, upload.ErrFileTooLarge.Error())
				return
			}
			writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FormName() != upload.FieldName || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		res, err := h.Uploader.Save(r.Context(), upload.File{
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Body:        part,
		})
		_ = part.Close()
		if err != nil {
			writeServiceError(w, h.Log, "upload file", err)
			return
		}

		writeJSON(w, http.StatusOK, res)
		return
	}
}

// Serve handles GET /uploads/*. Unknown keys give 404.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key, ok := upload.CleanKey(chi.URLParam(r, "*"))
	if !ok {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	rc, err := h.Files.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, upload.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		writeServiceError(w, h.Log, "open file", err)
		return
	}
	defer func() { _ = rc.Close() }()

	name := path.Base(key)
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, time.Time{}, rs)
		return
	}

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("stream file", zap.String("key", key), zap.Error(err))
	}
}
