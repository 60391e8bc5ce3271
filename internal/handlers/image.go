package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pubfeed/apiserver/internal/auth"
	"github.com/pubfeed/apiserver/internal/storage"
)

const (
	maxImageMemory = 8 << 20
	maxImageBytes  = 10 << 20
	formFieldImage = "image"
)

// ImageHandler uploads and serves post image assets from object storage.
type ImageHandler struct {
	storage *storage.Storage
}

func NewImageHandler(store *storage.Storage) *ImageHandler {
	return &ImageHandler{storage: store}
}

// ImageRouter registers image routes on the given router.
func ImageRouter(r chi.Router, store *storage.Storage) {
	handler := NewImageHandler(store)

	r.Post("/", handler.Upload)
	r.Get("/{imageKey}", handler.Download)
}

// UploadResponse carries the stored object key, used as a post's imageUrl.
type UploadResponse struct {
	Key string `json:"key"`
}

func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !auth.IdentityFromContext(r.Context()).Authenticated {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	filename, contentType, data, err := parseImageFile(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	if err := h.storage.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{Key: key})
}

func (h *ImageHandler) Download(w http.ResponseWriter, r *http.Request) {
	if !auth.IdentityFromContext(r.Context()).Authenticated {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	key := chi.URLParam(r, "imageKey")
	reader, err := h.storage.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer reader.Close()

	if _, err := io.Copy(w, reader); err != nil {
		return
	}
}

func parseImageFile(form *multipart.Form) (filename, contentType string, data []byte, err error) {
	if form == nil {
		return "", "", nil, errors.New("missing form data")
	}

	files := form.File[formFieldImage]
	if len(files) == 0 {
		return "", "", nil, errors.New("image file is required")
	}
	if len(files) > 1 {
		return "", "", nil, errors.New("only one image file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return "", "", nil, errors.New("failed to read image file")
	}

	data, err = readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return "", "", nil, err
	}

	return fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
