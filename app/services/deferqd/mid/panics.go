package mid

import (
	"context"
	"net/http"
	"runtime/debug"

	"github.com/deferq/deferq/app/services/deferqd/errs"
	"github.com/deferq/deferq/foundation/web"
)

// Panics converts a panicking handler into an error carrying the stack, so
// the errors middleware can respond and log it like any other failure.
func Panics() web.Middleware {
	m := func(h web.Handler) web.Handler {
		handler := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = errs.NewAppErrorf(http.StatusInternalServerError, "PANIC[%v] STACK[%s]", rec, debug.Stack())
				}
			}()

			return h(ctx, w, r)
		}

		return handler
	}
	return m
}
