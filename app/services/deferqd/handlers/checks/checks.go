// Package checks provides the liveness and readiness http handlers.
package checks

import (
	"context"
	"net/http"
	"os"
	"runtime"

	"github.com/deferq/deferq/app/services/deferqd/errs"
	"github.com/deferq/deferq/foundation/web"
)

// StatusChecker reports whether the backing store is reachable.
type StatusChecker interface {
	StatusCheck(ctx context.Context) error
}

// Handler represents set of http handlers.
type Handler struct {
	Build string
	DB    StatusChecker
}

// Liveness reports the process is up along with some host info.
func (h *Handler) Liveness(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}

	data := struct {
		Status     string `json:"status"`
		Build      string `json:"build"`
		Host       string `json:"host"`
		GOMAXPROCS int    `json:"GOMAXPROCS"`
	}{
		Status:     "up",
		Build:      h.Build,
		Host:       host,
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}

	if err := web.Respond(ctx, w, http.StatusOK, data); err != nil {
		return errs.NewAppInternalErr(err)
	}
	return nil
}

// Readiness fails when the backing store is not reachable, so the load
// balancer stops routing to this instance.
func (h *Handler) Readiness(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.DB.StatusCheck(ctx); err != nil {
		return errs.NewAppErrorf(http.StatusInternalServerError, "database not ready: %s", err)
	}

	data := struct {
		Status string `json:"status"`
	}{
		Status: "ready",
	}

	if err := web.Respond(ctx, w, http.StatusOK, data); err != nil {
		return errs.NewAppInternalErr(err)
	}
	return nil
}
