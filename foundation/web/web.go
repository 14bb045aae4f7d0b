// Package web is a small web framework on top of the standard library mux:
// handlers that return errors, app and route level middlewares, and request
// metadata traveling in the context.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Handler represents the signature all handlers in the system implement.
type Handler func(context.Context, http.ResponseWriter, *http.Request) error

// App represents the application mux with its app level middlewares.
type App struct {
	mux      *http.ServeMux
	shutdown chan<- os.Signal
	mids     []Middleware
}

// NewApp creates an app with the given app level middlewares applied to every
// route.
func NewApp(shutdown chan<- os.Signal, mids ...Middleware) *App {
	return &App{
		mux:      http.NewServeMux(),
		shutdown: shutdown,
		mids:     mids,
	}
}

// SignalShutdown sends the shutdown signal to the app so main can start a
// graceful shutdown. Used when a handler returned an error the middlewares
// could not handle.
func (a *App) SignalShutdown() {
	a.shutdown <- syscall.SIGTERM
}

// HandleFunc registers a handler with its route level middlewares applied
// before the app level ones.
func (a *App) HandleFunc(method string, version string, path string, handler Handler, mids ...Middleware) {
	handler = applyMiddlewares(handler, mids...)
	handler = applyMiddlewares(handler, a.mids...)

	h := func(w http.ResponseWriter, r *http.Request) {
		rm := requestMetadata{
			StartedAt: time.Now(),
			RequestId: uuid.New(),
		}
		ctx := injectRequestMetadata(r.Context(), &rm)

		if err := handler(ctx, w, r); err != nil {
			//middlewares could not handle it, nothing left but going down
			a.SignalShutdown()
		}
	}

	finalPath := path
	if version != "" {
		finalPath = "/" + version + path
	}
	finalPath = fmt.Sprintf("%s %s", method, finalPath)

	a.mux.HandleFunc(finalPath, h)
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}
