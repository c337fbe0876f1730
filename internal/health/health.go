package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Handler reports service health: record store reachability plus disk
// headroom for the photo staging directory, which fills up first in the field.
type Handler struct {
	db         *pgxpool.Pool
	stagingDir string
}

type Status struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	Staging  DiskHealth     `json:"staging_disk"`
	Memory   MemoryHealth   `json:"memory"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type DiskHealth struct {
	UsedPercent float64 `json:"used_percent"`
	FreeMB      uint64  `json:"free_mb"`
}

type MemoryHealth struct {
	UsedPercent float64 `json:"used_percent"`
}

func NewHandler(db *pgxpool.Pool, stagingDir string) *Handler {
	return &Handler{db: db, stagingDir: stagingDir}
}

// Check handles GET /health.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	status := h.collect()

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (h *Handler) collect() Status {
	dbHealth := h.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	var diskHealth DiskHealth
	if usage, err := disk.Usage(h.stagingDir); err == nil {
		diskHealth = DiskHealth{
			UsedPercent: usage.UsedPercent,
			FreeMB:      usage.Free / 1024 / 1024,
		}
	}

	var memHealth MemoryHealth
	if vm, err := mem.VirtualMemory(); err == nil {
		memHealth = MemoryHealth{UsedPercent: vm.UsedPercent}
	}

	return Status{
		Status:   status,
		Database: dbHealth,
		Staging:  diskHealth,
		Memory:   memHealth,
	}
}

func (h *Handler) checkDatabase() DatabaseHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{Status: "unhealthy", ResponseTime: responseTime}
	}
	return DatabaseHealth{Status: "healthy", ResponseTime: responseTime}
}
