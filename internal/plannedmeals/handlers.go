package plannedmeals

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/fdg312/meal-planner/internal/reports"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/fdg312/meal-planner/internal/userctx"
)

// DefaultOwner owns requests that carry no authenticated user.
const DefaultOwner = "default"

// Handler handles HTTP requests for planned meals.
type Handler struct {
	service *Service
}

// NewHandler creates a new planned meals handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the planned meals routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /meals/date/{date}", h.HandleListByDate)
	mux.HandleFunc("GET /meals/all", h.HandleListAll)
	mux.HandleFunc("GET /meals/insights", h.HandleInsights)
	mux.HandleFunc("GET /meals/report", h.HandleReport)
	mux.HandleFunc("POST /meals", h.HandleCreate)
	mux.HandleFunc("PUT /meals/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /meals/{id}", h.HandleDelete)
}

// HandleListByDate handles GET /meals/date/{date}
func (h *Handler) HandleListByDate(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListByDate(r.Context(), ownerID(r), r.PathValue("date"))
	if err != nil {
		writeServiceError(w, err, "Failed to list meals")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleListAll handles GET /meals/all
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListAll(r.Context(), ownerID(r))
	if err != nil {
		writeServiceError(w, err, "Failed to list meals")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleCreate handles POST /meals
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	row, err := h.service.Create(r.Context(), ownerID(r), req)
	if err != nil {
		writeServiceError(w, err, "Failed to save meal")
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// HandleUpdate handles PUT /meals/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req MealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	row, err := h.service.Update(r.Context(), ownerID(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "Failed to update meal")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// HandleDelete handles DELETE /meals/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), ownerID(r), id); err != nil {
		writeServiceError(w, err, "Failed to delete meal")
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{ID: id, Message: "Meal deleted"})
}

// HandleInsights handles GET /meals/insights
func (h *Handler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Insights(r.Context(), ownerID(r))
	if err != nil {
		writeServiceError(w, err, "Failed to compute insights")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleReport handles GET /meals/report?format=pdf|csv
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	data, contentType, err := h.service.Report(r.Context(), ownerID(r), format)
	if err != nil {
		writeServiceError(w, err, "Failed to generate report")
		return
	}

	if format == "" {
		format = reports.FormatPDF
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="meal-insights.`+format+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func ownerID(r *http.Request) string {
	return userctx.UserIDOr(r.Context(), DefaultOwner)
}

// writeServiceError maps service errors to status codes; anything
// unexpected is logged and reported as internal.
func writeServiceError(w http.ResponseWriter, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, reports.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "invalid_format", "format must be pdf or csv")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Meal not found")
	case errors.Is(err, storage.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "A meal is already planned for this date and slot")
	default:
		log.Printf("planned meals: %s: %v", internalMsg, err)
		writeError(w, http.StatusInternalServerError, "internal_error", internalMsg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Message: message, Code: code})
}
