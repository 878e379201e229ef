package handlers

import (
	"net/http"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/models"
)

// HandleClassifyImages serves POST /api/classify-images
func (h *Handler) HandleClassifyImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{Error: methodNotAllowed(r.Method).Error()})
		return
	}

	var req models.ClassificationRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeClassifyError(w, r, err)
		return
	}

	categories, err := h.classifier.Classify(r.Context(), req.Thumbnails)
	if err != nil {
		h.writeClassifyError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, models.ClassificationResult{
		Success:    true,
		Categories: categories,
	})
}

func (h *Handler) writeClassifyError(w http.ResponseWriter, r *http.Request, err error) {
	logFailure(r, err)
	h.writeJSON(w, apperr.HTTPStatus(err), models.ErrorResponse{Error: apperr.PublicMessage(err)})
}
