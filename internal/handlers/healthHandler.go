package handlers

import (
	"context"
	"net/http"
	"sync"

	"deskrag/internal/config"
)

type healthReport struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// HealthHandler godoc
// @Summary      Readiness probe
// @Description  Pings the vector index and the model backend concurrently. Degraded when any dependency is down.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  healthReport  "All dependencies reachable"
// @Failure      503  {object}  healthReport  "One or more dependencies down"
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.ProbeTimeout)
	defer cancel()

	report := healthReport{Status: "ok", Services: make(map[string]string)}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, probe := range handlerInstance.probes {
		wg.Add(1)
		go func(name string, probe HealthProbe) {
			defer wg.Done()
			state := "ok"
			if err := probe(ctx); err != nil {
				logRH.Warn("Health probe failed", "service", name, "err", err)
				state = "down"
			}
			mu.Lock()
			report.Services[name] = state
			if state == "down" {
				report.Status = "degraded"
			}
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJsonResponse(w, code, report)
}
