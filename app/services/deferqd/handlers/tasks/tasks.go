// Package tasks provides the http handlers for registering deferred and
// periodic invocations.
package tasks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/deferq/deferq/app/services/deferqd/errs"
	"github.com/deferq/deferq/business/domain/scheduler"
	"github.com/deferq/deferq/business/registry"
	"github.com/deferq/deferq/foundation/web"
)

// Handler represents set of http handlers.
type Handler struct {
	Validator *errs.AppValidator
	Scheduler *scheduler.Client
	Registry  *registry.Registry
}

// CreateTask registers a deferred invocation due right now or returns possible errors.
func (h *Handler) CreateTask(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var newTask NewTask
	if err := json.NewDecoder(r.Body).Decode(&newTask); err != nil {
		return errs.NewAppErrorf(http.StatusBadRequest, "invalid data: %s", err.Error())
	}

	fields, ok := h.Validator.Check(newTask)
	if !ok {
		return errs.NewAppValidationError(http.StatusBadRequest, "invalid input", fields)
	}

	//rows for unknown keys would be silently consumed by the engine, reject
	//them at the door instead
	if !h.Registry.Registered(newTask.Function) {
		return errs.NewAppErrorf(http.StatusNotFound, "function %q is not registered", newTask.Function)
	}

	resp := Task{Function: newTask.Function}

	if newTask.WithResult {
		id, err := h.Scheduler.DeferWithResult(ctx, newTask.Function, newTask.Args)
		if err != nil {
			return errs.NewAppInternalErr(err)
		}
		resp.ResultId = &id
	} else {
		if err := h.Scheduler.Defer(ctx, newTask.Function, newTask.Args); err != nil {
			return errs.NewAppInternalErr(err)
		}
	}

	if err := web.Respond(ctx, w, http.StatusCreated, resp); err != nil {
		return errs.NewAppInternalErr(err)
	}

	return nil
}

// CreateCron registers a periodic invocation or returns possible errors.
// Registering the same function again replaces its previous crontab.
func (h *Handler) CreateCron(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var newCron NewCron
	if err := json.NewDecoder(r.Body).Decode(&newCron); err != nil {
		return errs.NewAppErrorf(http.StatusBadRequest, "invalid data: %s", err.Error())
	}

	fields, ok := h.Validator.Check(newCron)
	if !ok {
		return errs.NewAppValidationError(http.StatusBadRequest, "invalid input", fields)
	}

	if !h.Registry.Registered(newCron.Function) {
		return errs.NewAppErrorf(http.StatusNotFound, "function %q is not registered", newCron.Function)
	}

	if err := h.Scheduler.SchedulePeriodic(ctx, newCron.Function, newCron.Crontab, newCron.Args); err != nil {
		return errs.NewAppInternalErr(err)
	}

	resp := Cron{
		Function: newCron.Function,
		Crontab:  newCron.Crontab,
	}

	if err := web.Respond(ctx, w, http.StatusCreated, resp); err != nil {
		return errs.NewAppInternalErr(err)
	}

	return nil
}
