package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// SessionCounter reports how many watcher sessions are currently running
type SessionCounter interface {
	ActiveCount() int
}

// DatabaseHealthChecker reports database connectivity
type DatabaseHealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// BotHealthChecker reports delivery bot availability
type BotHealthChecker interface {
	IsHealthy() bool
}

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
	Sessions   int               `json:"active_sessions"`
}

// HealthHandler handles HTTP health check requests
type HealthHandler struct {
	sessions SessionCounter
	database DatabaseHealthChecker
	bot      BotHealthChecker
	logger   zerolog.Logger
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(
	sessions SessionCounter,
	database DatabaseHealthChecker,
	bot BotHealthChecker,
	logger zerolog.Logger,
) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		database: database,
		bot:      bot,
		logger:   logger,
	}
}

// ServeHTTP implements http.Handler interface
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only allow GET requests
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Add timeout for health check to prevent hanging
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Check health of all components
	components := h.checkComponents(ctx)

	// Determine overall status
	status := h.determineOverallStatus(components)

	response := HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
		Sessions:   h.sessions.ActiveCount(),
	}

	// Set appropriate HTTP status code
	statusCode := http.StatusOK
	if status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	// Log health status
	logEvent := h.logger.Debug()
	if status == HealthStatusUnhealthy {
		logEvent = h.logger.Warn()
	} else if status == HealthStatusDegraded {
		logEvent = h.logger.Info()
	}
	logEvent.
		Str("status", string(status)).
		Int("status_code", statusCode).
		Interface("components", components).
		Msg("Health check completed")

	// Write JSON response
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Headers already sent, errors can only be logged
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode health check response")
		return
	}
}

// checkComponents checks health of all service components
func (h *HealthHandler) checkComponents(ctx context.Context) []ComponentHealth {
	components := make([]ComponentHealth, 0, 2)

	// Check context before starting checks
	select {
	case <-ctx.Done():
		return []ComponentHealth{{
			Name:    "health_check",
			Healthy: false,
			Message: "Health check timeout",
		}}
	default:
	}

	// Check database connectivity
	databaseHealthy := h.database.HealthCheck(ctx)
	databaseMsg := ""
	if !databaseHealthy {
		databaseMsg = "Database is not reachable"
	}

	components = append(components, ComponentHealth{
		Name:    "database",
		Healthy: databaseHealthy,
		Message: databaseMsg,
	})

	// Check delivery bot
	botHealthy := h.bot.IsHealthy()
	botMsg := ""
	if !botHealthy {
		botMsg = "Delivery bot is not healthy"
	}

	components = append(components, ComponentHealth{
		Name:    "delivery_bot",
		Healthy: botHealthy,
		Message: botMsg,
	})

	return components
}

// determineOverallStatus determines overall health status based on component health
func (h *HealthHandler) determineOverallStatus(components []ComponentHealth) HealthStatus {
	allHealthy := true
	anyHealthy := false

	for _, component := range components {
		if !component.Healthy {
			allHealthy = false
		} else {
			anyHealthy = true
		}
	}

	if allHealthy {
		return HealthStatusHealthy
	} else if anyHealthy {
		return HealthStatusDegraded
	}

	return HealthStatusUnhealthy
}
