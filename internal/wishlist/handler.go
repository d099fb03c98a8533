package wishlist

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-storefront/internal/common"
)

type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type mergeRequest struct {
	Items []Item `json:"items" validate:"max=200,dive"`
}

// Merge handles POST /wishlist/merge.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	if _, ok := common.AccessToken(r.Context()); !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in to merge your wishlist", nil)
		return
	}
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "payload failed validation", nil)
			return
		}
	}
	merged, err := h.Svc.Merge(r.Context(), req.Items)
	if err != nil {
		if common.WriteAppError(w, err) {
			return
		}
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "wishlist merge failed", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"items": merged})
}
