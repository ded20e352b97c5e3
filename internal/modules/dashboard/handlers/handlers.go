// Package handlers provides HTTP handlers for report slots, dashboard views and
// allocation settings.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/exporter"
	"github.com/aristath/reportdesk/internal/modules/allocation"
	"github.com/aristath/reportdesk/internal/modules/dashboard"
	"github.com/aristath/reportdesk/internal/modules/reports"
)

// maxPasteBytes bounds the body of a paste request.
const maxPasteBytes = 8 << 20

// Handler handles dashboard HTTP requests
type Handler struct {
	service *dashboard.Service
	log     zerolog.Logger
}

// NewHandler creates a new dashboard handler
func NewHandler(service *dashboard.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "dashboard").Logger(),
	}
}

// HandleGetSlots handles GET /api/reports
func (h *Handler) HandleGetSlots(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.service.Slots())
}

// HandlePaste handles PUT /api/reports/{slot}. The body is the pasted text.
func (h *Handler) HandlePaste(w http.ResponseWriter, r *http.Request) {
	raw, err := readPaste(w, r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	state, err := h.service.Paste(r.Context(), reports.Kind(urlParam(r, "slot")), raw)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeSlotState(w, state)
}

// HandlePasteAuto handles POST /api/reports. The slot is detected from the text.
func (h *Handler) HandlePasteAuto(w http.ResponseWriter, r *http.Request) {
	raw, err := readPaste(w, r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	_, state, err := h.service.PasteAuto(r.Context(), raw)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeSlotState(w, state)
}

// HandleClear handles DELETE /api/reports/{slot}
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	kind := reports.Kind(urlParam(r, "slot"))
	if err := h.service.Clear(r.Context(), kind); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, h.service.Slot(kind))
}

// HandleGetDashboard handles GET /api/dashboard
func (h *Handler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.service.Snapshot())
}

// HandleExportWorkbook handles GET /api/export.xlsx
func (h *Handler) HandleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()

	var buf bytes.Buffer
	if err := exporter.WriteWorkbook(&buf, snap); err != nil {
		h.log.Error().Err(err).Msg("Failed to export workbook")
		h.writeError(w, http.StatusInternalServerError, "Failed to export workbook")
		return
	}

	name := fmt.Sprintf("dashboard-%s.xlsx", time.Now().Format("20060102-1504"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log.Warn().Err(err).Msg("Failed to send workbook")
	}
}

// HandleGetDepartments handles GET /api/allocation/departments
func (h *Handler) HandleGetDepartments(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"departments": h.service.Departments(),
		"weights":     h.service.Weights(),
		"target":      h.service.Snapshot().Target,
	})
}

type weightRequest struct {
	Pct *float64 `json:"pct"`
}

// HandleSetDepartmentWeight handles PUT /api/allocation/departments/{name}
func (h *Handler) HandleSetDepartmentWeight(w http.ResponseWriter, r *http.Request) {
	h.setWeight(w, r, dashboard.ScopeDepartments)
}

// HandleSetCompetitionWeight handles PUT /api/allocation/competitions/{name}
func (h *Handler) HandleSetCompetitionWeight(w http.ResponseWriter, r *http.Request) {
	h.setWeight(w, r, dashboard.ScopeCompetitions)
}

func (h *Handler) setWeight(w http.ResponseWriter, r *http.Request, scope dashboard.WeightScope) {
	var request weightRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if request.Pct == nil {
		h.writeError(w, http.StatusBadRequest, "pct is required")
		return
	}

	weights, err := h.service.SetWeight(r.Context(), scope, urlParam(r, "name"), *request.Pct)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, weights)
}

// HandleSetTarget handles PUT /api/allocation/target
func (h *Handler) HandleSetTarget(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Base      *float64 `json:"base"`
		AdjustPct *float64 `json:"adjust_pct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.SetTarget(r.Context(), request.Base, request.AdjustPct); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, h.service.Snapshot().Target)
}

// HandleSetCompetitionAdjust handles PUT /api/allocation/competitions/{name}/adjust
func (h *Handler) HandleSetCompetitionAdjust(w http.ResponseWriter, r *http.Request) {
	var request weightRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if request.Pct == nil {
		h.writeError(w, http.StatusBadRequest, "pct is required")
		return
	}

	if err := h.service.SetCompetitionAdjust(r.Context(), urlParam(r, "name"), *request.Pct); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, h.service.Weights().CompetitionAdjusts)
}

// HandleGetMappings handles GET /api/mappings
func (h *Handler) HandleGetMappings(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.service.Mapping())
}

// HandleSetMapping handles PUT /api/mappings/{department}
func (h *Handler) HandleSetMapping(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Identities []string `json:"identities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.SetManualGroup(r.Context(), urlParam(r, "department"), request.Identities); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, h.service.Mapping())
}

// HandleDeleteMapping handles DELETE /api/mappings/{department}
func (h *Handler) HandleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteManualGroup(r.Context(), urlParam(r, "department")); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, h.service.Mapping())
}

// HandleSelectStore handles PUT /api/selection/store
func (h *Handler) HandleSelectStore(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Store string `json:"store"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.SelectStore(r.Context(), request.Store); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]string{"store": h.service.SelectedStore()})
}

// handleServiceError maps service errors to status codes.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrUnknownKind), errors.Is(err, allocation.ErrUnknownShare):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrUnrecognizedReport):
		h.writeError(w, http.StatusUnprocessableEntity, dashboard.InvalidFormatMessage)
	case errors.Is(err, dashboard.ErrInvalidValue):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Dashboard operation failed")
		h.writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// writeSlotState answers a paste. A rejected paste is stored but reported as 422.
func (h *Handler) writeSlotState(w http.ResponseWriter, state dashboard.SlotState) {
	status := http.StatusOK
	if state.Status == dashboard.SlotInvalid {
		status = http.StatusUnprocessableEntity
	}
	h.writeData(w, status, state)
}

// writeData wraps data in the response envelope.
func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// readPaste reads the pasted text. JSON bodies carry it in "raw"; anything else is the
// text itself.
func readPaste(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPasteBytes))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var request struct {
			Raw string `json:"raw"`
		}
		if err := json.Unmarshal(body, &request); err != nil {
			return "", err
		}
		return request.Raw, nil
	}
	return string(body), nil
}

// urlParam returns a decoded route parameter; department and program names are not
// ASCII.
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
