package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hongminglow/cryptodesk-be/internal/http/respond"
)

const checkTimeout = 2 * time.Second

// Pinger is a dependency the health endpoint can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns uptime, dependency checks and host memory.
type HealthHandler struct {
	startedAt time.Time
	checks    map[string]Pinger
	log       zerolog.Logger
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(startedAt time.Time, checks map[string]Pinger, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, checks: checks, log: log.With().Str("handler", "health").Logger()}
}

type healthReport struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
	Memory *memoryReport     `json:"memory,omitempty"`
}

type memoryReport struct {
	TotalMB     uint64  `json:"total_mb"`
	UsedMB      uint64  `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// Register wires the handler into the router.
func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	report := healthReport{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
		Checks: make(map[string]string, len(h.checks)),
	}

	for name, dep := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := dep.Ping(ctx)
		cancel()
		if err != nil {
			h.log.Warn().Err(err).Str("check", name).Msg("health check failed")
			report.Checks[name] = "error"
			report.Status = "degraded"
			continue
		}
		report.Checks[name] = "ok"
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		report.Memory = &memoryReport{
			TotalMB:     vm.Total / 1024 / 1024,
			UsedMB:      vm.Used / 1024 / 1024,
			UsedPercent: vm.UsedPercent,
		}
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(w, status, report.Status, report)
}
