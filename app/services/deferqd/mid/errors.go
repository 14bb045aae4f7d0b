package mid

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/deferq/deferq/app/services/deferqd/errs"
	"github.com/deferq/deferq/foundation/web"
)

// Errors turns handler errors into JSON responses. Trusted *AppError values go
// out as they are, anything else becomes a generic internal server error.
func Errors(logger *slog.Logger) web.Middleware {
	m := func(h web.Handler) web.Handler {
		handler := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := h(ctx, w, r)
			if err == nil {
				return nil
			}

			var appErr *errs.AppError
			if !errors.As(err, &appErr) {
				//untrusted error, do not leak it to the client
				appErr = &errs.AppError{
					Code:    http.StatusInternalServerError,
					Message: http.StatusText(http.StatusInternalServerError),
				}
			}

			logger.Error("request error",
				"requestId", web.GetRequestId(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"funcName", appErr.FuncName,
				"fileName", appErr.FileName,
				"msg", err.Error(),
			)

			if err := web.Respond(ctx, w, appErr.Code, appErr); err != nil {
				//responding itself failed, let the app shut down
				return err
			}

			return nil
		}
		return handler
	}
	return m
}
