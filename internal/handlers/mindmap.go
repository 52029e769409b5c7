package handlers

import (
	"net/http"

	"studyhub-backend/internal/mindmap"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/services"
)

type MindmapHandler struct {
	gen services.Generator
}

func NewMindmapHandler(gen services.Generator) *MindmapHandler {
	return &MindmapHandler{gen: gen}
}

// Generate builds a mind map from a topic or notes and lays it out radially.
func (h *MindmapHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.MindmapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	data, err := h.gen.GenerateMindmap(r.Context(), req.Input)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mindmap": mindmap.Layout(data)})
}
