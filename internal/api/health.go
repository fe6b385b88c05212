package api

import (
	"context"
	"net/http"
	"time"

	"linker/internal/models/dtos"

	"github.com/goccy/go-json"
)

const (
	statusOK   = "ok"
	statusDown = "down"
)

// HealthCheck handles GET /healthCheck
func (h *Handlers) HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := make(map[string]dtos.ServiceStatus)

		if h.deps.SQL != nil {
			services["postgres"] = check(h.deps.SQL.PingContext(ctx), "Postgres Connected")
		}
		if h.deps.Redis != nil {
			services["redis"] = check(h.deps.Redis.Ping(ctx).Err(), "Redis Connected")
		}

		overallStatus := statusOK
		for _, svc := range services {
			if svc.Status != statusOK {
				overallStatus = statusDown
				break
			}
		}

		resp := dtos.HealthCheckResponse{
			Services: services,
			Status:   overallStatus,
			UpSince:  h.deps.UpSince,
			Uptime:   time.Since(h.deps.UpSince).Round(time.Second).String(),
		}

		code := http.StatusOK
		if overallStatus != statusOK {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func check(err error, okDetails string) dtos.ServiceStatus {
	if err != nil {
		return dtos.ServiceStatus{Status: statusDown, Details: err.Error()}
	}
	return dtos.ServiceStatus{Status: statusOK, Details: okDetails}
}
