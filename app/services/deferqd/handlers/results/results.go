// Package results provides the http handler for polling task outcomes.
package results

import (
	"context"
	"errors"
	"net/http"

	"github.com/deferq/deferq/app/services/deferqd/errs"
	"github.com/deferq/deferq/business/domain/scheduler"
	"github.com/deferq/deferq/foundation/web"
	"github.com/google/uuid"
)

// Handler represents set of http handlers.
type Handler struct {
	Scheduler *scheduler.Client
}

// GetResultById returns the outcome for the given identifier. Not found covers
// unknown ids, purged records and registrations still in flight, so the caller
// is expected to keep polling.
func (h *Handler) GetResultById(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resultId := r.PathValue("id")

	resultUUID, err := uuid.Parse(resultId)
	if err != nil {
		return errs.NewAppErrorf(http.StatusBadRequest, "%q not a valid uuid", resultId)
	}

	outcome, err := h.Scheduler.FetchResult(ctx, resultUUID)
	if err != nil {
		if errors.Is(err, scheduler.ErrResultNotFound) {
			return errs.NewAppErrorf(http.StatusNotFound, "result with id %q not found", resultId)
		}
		return errs.NewAppInternalErr(err)
	}

	resp := Result{
		Status:     outcome.Status.String(),
		Value:      outcome.Value,
		ErrMessage: outcome.ErrMessage,
	}

	if err := web.Respond(ctx, w, http.StatusOK, resp); err != nil {
		return errs.NewAppInternalErr(err)
	}

	return nil
}
