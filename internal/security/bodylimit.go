package security

import (
	"net/http"
	"strings"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// BodyLimit caps request payloads. Multipart uploads get their own cap.
type BodyLimit struct {
	Max       int64
	UploadMax int64
}

// Middleware rejects declared oversized bodies with 413 and wraps the rest
// in http.MaxBytesReader so handlers see a read error past the cap.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := b.Max
		if b.UploadMax > 0 && strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/") {
			limit = b.UploadMax
		}
		if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > limit {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
