package handler

import (
	"encoding/json"
	"net/http"

	"labslot/internal/view/service"
	httputil "labslot/pkg/http"
	"labslot/pkg/logger"
	"labslot/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type ViewHandler struct {
	service service.ViewService
	log     *logger.Logger
}

func NewViewHandler(service service.ViewService, log *logger.Logger) *ViewHandler {
	return &ViewHandler{
		service: service,
		log:     log,
	}
}

// Calendar returns the display entries for a window. Bounds are optional
// millisecond epochs; omitting both returns everything.
func (h *ViewHandler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	from, err := httputil.ExtractTimestamp(r, "from")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Calendar", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	to, err := httputil.ExtractTimestamp(r, "to")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Calendar", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	entries, err := h.service.Calendar(r.Context(), userID, from, to)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Calendar", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "Calendar", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ViewHandler) GetFacets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	state, err := h.service.Facets(r.Context(), userID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetFacets", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "GetFacets", "operation", "WriteSuccess", "error", err)
	}
}

type toggleFacetRequest struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

func (h *ViewHandler) ToggleFacet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req toggleFacetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ToggleFacet", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	state, err := h.service.ToggleFacet(r.Context(), userID, req.Dimension, req.Value)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ToggleFacet", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, state); err != nil {
		h.log.Error("failed to write success response", "handler", "ToggleFacet", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ViewHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/view/calendar", h.Calendar)
	router.GET("/api/v1/view/facets", h.GetFacets)
	router.POST("/api/v1/view/facets/toggle", h.ToggleFacet)
}
