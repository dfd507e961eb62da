package v1

import (
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/convoke-ai/convoke/internal/gateway"
	"github.com/convoke-ai/convoke/pkg/api"
)

type HealthHandler struct {
	prober    *gateway.Prober
	providers []string
}

func NewHealthHandler(prober *gateway.Prober, providers []string) *HealthHandler {
	sorted := append([]string(nil), providers...)
	sort.Strings(sorted)
	return &HealthHandler{prober: prober, providers: sorted}
}

// Overview handles GET /health: every provider is probed concurrently and
// the aggregate is healthy only when all of them pass.
func (h *HealthHandler) Overview(c *gin.Context) {
	results := make(map[string]api.HealthResult, len(h.providers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range h.providers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res := h.prober.Check(c.Request.Context(), id)
			mu.Lock()
			results[id] = res
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	overview := api.HealthOverview{
		Status:    "healthy",
		Providers: make(map[string]api.HealthResponse, len(results)),
	}
	for id, res := range results {
		overview.Providers[id] = toResponse("", res)
		if !res.Success {
			overview.Status = "degraded"
		}
	}

	status := http.StatusOK
	if overview.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, overview)
}

// Provider handles GET /health/:provider.
func (h *HealthHandler) Provider(c *gin.Context) {
	providerID := c.Param("provider")
	res := h.prober.Check(c.Request.Context(), providerID)

	status := http.StatusOK
	if !res.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, toResponse(providerID, res))
}

func toResponse(providerID string, res api.HealthResult) api.HealthResponse {
	resp := api.HealthResponse{
		Provider: providerID,
		Status:   "healthy",
		Message:  res.Message,
		Metrics: map[string]string{
			"latency_ms": strconv.FormatInt(res.Latency.Milliseconds(), 10),
		},
	}
	if !res.Success {
		resp.Status = "unhealthy"
		resp.Message = ""
		resp.Error = &api.ErrorDetail{Kind: "health_check_failed", Message: res.Message}
	}
	return resp
}
