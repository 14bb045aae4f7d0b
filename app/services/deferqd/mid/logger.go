// Package mid contains the app level middlewares.
package mid

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/deferq/deferq/foundation/web"
)

// Logger logs the start and the end of every request with its metadata.
func Logger(logger *slog.Logger) web.Middleware {
	m := func(h web.Handler) web.Handler {
		handler := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			logger.Info("request started",
				"requestId", web.GetRequestId(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr,
			)

			err := h(ctx, w, r)

			logger.Info("request completed",
				"requestId", web.GetRequestId(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"statusCode", web.GetStatusCode(ctx),
				"took", time.Since(web.GetStartedAt(ctx)).String(),
			)

			return err
		}
		return handler
	}
	return m
}
