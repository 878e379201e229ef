package handlers

import (
	"net/http"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/models"
)

// HandleImageTools serves POST /api/image-tools
func (h *Handler) HandleImageTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeJSON(w, http.StatusMethodNotAllowed, models.ImageToolResult{Error: methodNotAllowed(r.Method).Error()})
		return
	}

	var req models.ImageToolRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeToolError(w, r, err)
		return
	}

	result, err := h.tools.Run(r.Context(), req)
	if err != nil {
		h.writeToolError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeToolError(w http.ResponseWriter, r *http.Request, err error) {
	logFailure(r, err)
	h.writeJSON(w, apperr.HTTPStatus(err), models.ImageToolResult{
		Success: false,
		Error:   apperr.PublicMessage(err),
	})
}
