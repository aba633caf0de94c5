package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/blogtemplates/internal/middleware"
	"github.com/deppfellow/blogtemplates/internal/server"
	"github.com/deppfellow/blogtemplates/internal/service"
	"github.com/labstack/echo/v4"
)

// HealthHandler serves /status for load balancers and uptime monitors.
type HealthHandler struct {
	Handler
	templates *service.TemplateService
}

func NewHealthHandler(s *server.Server, templates *service.TemplateService) *HealthHandler {
	return &HealthHandler{
		Handler:   NewHandler(s),
		templates: templates,
	}
}

type checkResult map[string]any

// CheckHealth runs the configured checks and answers 200 when all pass,
// 503 otherwise.
//
//   - database: pings the pool
//   - schema: reads the store through the service, which fails when the
//     tables are missing
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	cfg := h.server.Config.Observability.HealthChecks
	checks := map[string]checkResult{}
	response := map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	isHealthy := true
	if cfg.Enabled {
		for _, name := range cfg.Checks {
			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			checkStart := time.Now()
			result, err := h.runCheck(ctx, name)
			cancel()

			if result == nil {
				result = checkResult{}
			}
			result["response_time"] = time.Since(checkStart).String()

			if err != nil {
				isHealthy = false
				result["status"] = "unhealthy"
				result["error"] = err.Error()

				logger.Error().Err(err).Str("check", name).Dur("response_time", time.Since(checkStart)).Msg("health check failed")
				h.recordFailure(name, err, time.Since(checkStart))
			} else {
				result["status"] = "healthy"
				logger.Debug().Str("check", name).Dur("response_time", time.Since(checkStart)).Msg("health check passed")
			}
			checks[name] = result
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

func (h *HealthHandler) runCheck(ctx context.Context, name string) (checkResult, error) {
	switch name {
	case "database":
		return nil, h.server.DB.Pool.Ping(ctx)
	case "schema":
		status, err := h.templates.Status(ctx)
		if err != nil {
			return nil, err
		}
		return checkResult{
			"prefix":              status.Prefix,
			"categories":          status.Categories,
			"default_category_id": status.DefaultCategoryID,
		}, nil
	default:
		return nil, fmt.Errorf("unknown health check %q", name)
	}
}

// recordFailure sends a HealthCheckError custom event when New Relic is on.
func (h *HealthHandler) recordFailure(name string, err error, took time.Duration) {
	if h.server.LoggerService == nil || h.server.LoggerService.GetApplication() == nil {
		return
	}
	h.server.LoggerService.GetApplication().RecordCustomEvent("HealthCheckError", map[string]any{
		"check_type":       name,
		"operation":        "health_check",
		"error_type":       name + "_unhealthy",
		"response_time_ms": took.Milliseconds(),
		"error_message":    err.Error(),
	})
}
