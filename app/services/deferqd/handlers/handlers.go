// Package handlers wires the domain services into the http routes.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/deferq/deferq/app/services/deferqd/errs"
	"github.com/deferq/deferq/app/services/deferqd/handlers/checks"
	"github.com/deferq/deferq/app/services/deferqd/handlers/results"
	"github.com/deferq/deferq/app/services/deferqd/handlers/tasks"
	"github.com/deferq/deferq/app/services/deferqd/mid"
	"github.com/deferq/deferq/business/domain/scheduler"
	"github.com/deferq/deferq/business/registry"
	"github.com/deferq/deferq/foundation/web"
)

type Config struct {
	Build     string
	Shutdown  chan os.Signal
	Logger    *slog.Logger
	Validator *errs.AppValidator
	Scheduler *scheduler.Client
	Registry  *registry.Registry
	DB        checks.StatusChecker
}

func RegisterRoutes(conf Config) (*web.App, error) {
	const version = "v1"
	app := web.NewApp(conf.Shutdown,
		mid.Logger(conf.Logger),
		mid.Errors(conf.Logger),
		mid.Panics(),
	)

	if conf.Scheduler == nil {
		return nil, fmt.Errorf("scheduler client is required")
	}
	if conf.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	taskHandler := tasks.Handler{
		Validator: conf.Validator,
		Scheduler: conf.Scheduler,
		Registry:  conf.Registry,
	}

	resultHandler := results.Handler{
		Scheduler: conf.Scheduler,
	}

	checkHandler := checks.Handler{
		Build: conf.Build,
		DB:    conf.DB,
	}

	//==============================================================================
	//tasks
	app.HandleFunc(http.MethodPost, version, "/tasks", taskHandler.CreateTask)
	app.HandleFunc(http.MethodPost, version, "/crons", taskHandler.CreateCron)

	//==============================================================================
	//results
	app.HandleFunc(http.MethodGet, version, "/results/{id}", resultHandler.GetResultById)

	//==============================================================================
	//checks
	app.HandleFunc(http.MethodGet, version, "/liveness", checkHandler.Liveness)
	app.HandleFunc(http.MethodGet, version, "/readiness", checkHandler.Readiness)

	return app, nil
}
