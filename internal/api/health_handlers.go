package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// healthProbeKey is looked up, never written, to prove the object root is readable.
const healthProbeKey = "health/probe"

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks. Responds 503 when any component is unhealthy.",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Status int
	Body   HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"objects":  s.checkObjects(ctx),
	}

	out := &HealthOutput{
		Status: http.StatusOK,
		Body:   HealthResponse{Status: "healthy", Components: components},
	}
	for name, c := range components {
		if c.Status != "healthy" {
			out.Status = http.StatusServiceUnavailable
			out.Body.Status = "unhealthy"
			s.logger.Warn("health check failed", "component", name, "message", c.Message)
		}
	}
	return out, nil
}

// checkDatabase verifies BadgerDB is accessible.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: "unhealthy", Message: "database not configured"}
	}

	start := time.Now()
	err := s.store.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "database read failed",
		}
	}
	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}

// checkObjects verifies the object store answers lookups.
func (s *Server) checkObjects(ctx context.Context) ComponentHealth {
	if s.objects == nil {
		return ComponentHealth{Status: "unhealthy", Message: "object store not configured"}
	}

	start := time.Now()
	_, err := s.objects.Exists(ctx, healthProbeKey)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "object store unreachable",
		}
	}
	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}
