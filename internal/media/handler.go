package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// Uploader forwards multipart bodies upstream.
type Uploader interface {
	Upload(ctx context.Context, contentType string, body io.Reader) ([]byte, error)
}

// Handler proxies account uploads.
type Handler struct {
	Upstream Uploader
	Logger   zerolog.Logger
}

// Upload handles POST /account/uploads.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := common.AccessToken(r.Context()); !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in to upload files", nil)
		return
	}
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data") {
		common.JSONError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "multipart/form-data required", nil)
		return
	}
	raw, err := h.Upstream.Upload(r.Context(), contentType, r.Body)
	if err != nil {
		if common.WriteAppError(w, err) {
			return
		}
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "upload failed", nil)
		return
	}
	upload, err := DecodeUpload(raw)
	if err != nil {
		h.Logger.Error().Err(err).Msg("upload_metadata_rejected")
		if errors.Is(err, ErrUnexpectedShape) {
			common.JSONError(w, http.StatusBadGateway, "UNEXPECTED_UPLOAD_SHAPE", "upload service returned unexpected metadata", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "upload failed", nil)
		return
	}
	common.Data(w, http.StatusCreated, upload)
}
