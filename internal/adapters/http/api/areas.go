// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// areasResponse mirrors the OpenAPI schema for GET /areas.
type areasResponse struct {
	Areas []string `json:"areas"`
}

// AreasHandler handles area listing requests.
type AreasHandler struct {
	deps Dependencies
}

// NewAreasHandler creates a new areas handler.
func NewAreasHandler(deps Dependencies) *AreasHandler {
	return &AreasHandler{deps: deps}
}

// HandleGetAreas handles GET /areas requests.
func (h *AreasHandler) HandleGetAreas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, areasResponse{Areas: h.deps.Areas(r.Context())})
}
