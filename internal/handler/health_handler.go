package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"streamchat/internal/messaging"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Ready returns readiness including optional dependencies. A nil db or
// rmq is reported as disabled, not as a failure.
func Ready(db *sql.DB, rmq *messaging.RabbitMQ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]HealthCheckResult{
			"database": checkDatabase(ctx, db),
			"rabbitmq": checkRabbitMQ(rmq),
		}

		healthy := true
		for _, c := range checks {
			if c.Status == "down" {
				healthy = false
			}
		}

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}

		w.Header().Set("Content-Type", "application/json")
		if healthy {
			response["status"] = "ready"
			w.WriteHeader(http.StatusOK)
		} else {
			response["status"] = "not ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

func checkDatabase(ctx context.Context, db *sql.DB) HealthCheckResult {
	if db == nil {
		return HealthCheckResult{Status: "disabled"}
	}

	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		return HealthCheckResult{Status: "down", Error: err.Error()}
	}
	return HealthCheckResult{Status: "up", LatencyMs: time.Since(start).Milliseconds()}
}

func checkRabbitMQ(rmq *messaging.RabbitMQ) HealthCheckResult {
	if rmq == nil {
		return HealthCheckResult{Status: "disabled"}
	}
	if rmq.IsClosed() {
		return HealthCheckResult{Status: "down", Error: "connection closed"}
	}
	return HealthCheckResult{Status: "up"}
}
