package controllers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/orderstackhq/inventory-backend/api/responses"
	"github.com/orderstackhq/inventory-backend/pkg/config"
	pkgerrors "github.com/orderstackhq/inventory-backend/pkg/errors"
	"github.com/orderstackhq/inventory-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the health-check surface each dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecks groups the dependencies the readiness probe verifies.
// Nil entries are skipped.
type ReadinessChecks struct {
	DB     Pinger
	Redis  Pinger
	PubSub Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Environment", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, checks ReadinessChecks, logg *logger.Logger) http.HandlerFunc {
	type check struct {
		name   string
		pinger Pinger
	}
	deps := []check{
		{name: "db", pinger: checks.DB},
		{name: "redis", pinger: checks.Redis},
		{name: "pubsub", pinger: checks.PubSub},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Environment", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var combined error
		status := map[string]string{}
		for _, dep := range deps {
			if dep.pinger == nil {
				continue
			}
			if err := dep.pinger.Ping(ctx); err != nil {
				combined = multierr.Append(combined, err)
				status[dep.name] = "unavailable"
				continue
			}
			status[dep.name] = "ok"
		}

		if combined != nil {
			err := pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "readiness check failed").
				WithDetails(status)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
