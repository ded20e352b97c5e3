// Package handlers provides HTTP handlers for backup export and restore.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/modules/backup"
)

// maxArchiveBytes bounds an uploaded archive.
const maxArchiveBytes = 64 << 20

// Handler handles backup HTTP requests
type Handler struct {
	service *backup.Service
	remote  *backup.R2BackupService
	log     zerolog.Logger
}

// NewHandler creates a new backup handler
func NewHandler(service *backup.Service, remote *backup.R2BackupService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		remote:  remote,
		log:     log.With().Str("handler", "backup").Logger(),
	}
}

// HandleDownload handles GET /api/backup?format=json|msgpack
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := backup.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	archive, err := h.service.Export(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to export backup")
		h.writeError(w, http.StatusInternalServerError, "Failed to export backup")
		return
	}
	data, err := backup.Encode(archive, format)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode backup")
		h.writeError(w, http.StatusInternalServerError, "Failed to encode backup")
		return
	}

	name := fmt.Sprintf("reportdesk-backup-%s%s", archive.CreatedAt.Format("20060102-150405"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Warn().Err(err).Msg("Failed to send backup")
	}
}

// HandleRestore handles POST /api/backup/restore. The body is an archive; its format
// comes from the format query parameter or the Content-Type header.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	formatHint := r.URL.Query().Get("format")
	if formatHint == "" {
		formatHint = r.Header.Get("Content-Type")
	}
	format, err := backup.ParseFormat(formatHint)
	if err != nil {
		h.writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArchiveBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	archive, err := backup.Decode(data, format)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.service.Restore(r.Context(), archive)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to restore backup")
		h.writeError(w, http.StatusInternalServerError, "Failed to restore backup")
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{"restored": n})
}

// HandleUploadRemote handles POST /api/backup/r2
func (h *Handler) HandleUploadRemote(w http.ResponseWriter, r *http.Request) {
	run, err := h.remote.Upload(r.Context())
	if err != nil {
		h.handleRemoteError(w, err, "Failed to upload backup")
		return
	}
	h.writeData(w, http.StatusOK, run)
}

// HandleListRemote handles GET /api/backup/r2
func (h *Handler) HandleListRemote(w http.ResponseWriter, r *http.Request) {
	objects, err := h.remote.List(r.Context())
	if err != nil {
		h.handleRemoteError(w, err, "Failed to list backups")
		return
	}
	if objects == nil {
		objects = []backup.ObjectInfo{}
	}
	h.writeData(w, http.StatusOK, objects)
}

// HandleRestoreRemote handles POST /api/backup/r2/restore?key=...
func (h *Handler) HandleRestoreRemote(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	n, err := h.remote.RestoreObject(r.Context(), key)
	if err != nil {
		if errors.Is(err, backup.ErrMalformedArchive) || errors.Is(err, backup.ErrUnsupportedFormat) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.handleRemoteError(w, err, "Failed to restore remote backup")
		return
	}
	h.writeData(w, http.StatusOK, map[string]interface{}{"restored": n, "key": key})
}

func (h *Handler) handleRemoteError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, backup.ErrRemoteNotConfigured) {
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.log.Error().Err(err).Msg(message)
	h.writeError(w, http.StatusBadGateway, message)
}

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
