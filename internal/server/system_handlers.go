package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/reportdesk/internal/database"
	"github.com/aristath/reportdesk/internal/modules/dashboard"
	"github.com/aristath/reportdesk/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	db          *database.DB
	dashboard   *dashboard.Service
	scheduler   *scheduler.Scheduler
	jobs        map[string]scheduler.Job
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string          `json:"status"`
	StartedAt     string          `json:"started_at"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	CPUPercent    float64         `json:"cpu_percent"`
	RAMPercent    float64         `json:"ram_percent"`
	Origin        string          `json:"origin,omitempty"`
	SelectedStore string          `json:"selected_store"`
	UpdatedSlots  int             `json:"updated_slots"`
	TotalSlots    int             `json:"total_slots"`
	Database      *database.Stats `json:"database,omitempty"`
}

// DatabaseStatsResponse represents the store database statistics
type DatabaseStatsResponse struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Stats       *database.Stats `json:"stats"`
	DataDirMB   float64         `json:"data_dir_mb"`
	LastChecked string          `json:"last_checked"`
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	db *database.DB,
	dashboardService *dashboard.Service,
	sched *scheduler.Scheduler,
	jobs []scheduler.Job,
) *SystemHandlers {
	byName := make(map[string]scheduler.Job, len(jobs))
	for _, job := range jobs {
		byName[job.Name()] = job
	}

	return &SystemHandlers{
		log:         log.With().Str("service", "system").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		db:          db,
		dashboard:   dashboardService,
		scheduler:   sched,
		jobs:        byName,
	}
}

// GetSystemStatusSnapshot collects the current system status
func (h *SystemHandlers) GetSystemStatusSnapshot() (SystemStatusResponse, error) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		StartedAt:     h.startupTime.Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
	}

	if h.dashboard != nil {
		response.Origin = h.dashboard.Origin()
		response.SelectedStore = h.dashboard.SelectedStore()
		slots := h.dashboard.Slots()
		response.TotalSlots = len(slots)
		for _, slot := range slots {
			if slot.Updated() {
				response.UpdatedSlots++
			}
		}
	}

	var firstErr error
	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to get database stats")
			response.Status = "degraded"
			firstErr = err
		} else {
			response.Database = stats
		}
	}

	return response, firstErr
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response, err := h.GetSystemStatusSnapshot()
	if err != nil {
		h.log.Warn().Err(err).Msg("System status collected with warnings")
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	if h.db == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "database not available"})
		return
	}

	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get database stats"})
		return
	}

	response := DatabaseStatsResponse{
		Name:        h.db.Name(),
		Path:        h.db.Path(),
		Stats:       stats,
		LastChecked: time.Now().Format(time.RFC3339),
	}
	if h.dataDir != "" {
		response.DataDirMB = h.getDirSize(h.dataDir)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleListJobs returns the names of jobs that can be triggered manually
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": names})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Unknown job: " + name})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")

	var err error
	if h.scheduler != nil {
		err = h.scheduler.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": name + " completed"})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short sampling interval so the status call stays fast
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
