package web

// Middleware wraps a handler with behavior that runs around it.
type Middleware func(Handler) Handler

// applyMiddlewares wraps the handler so the first middleware in the list is
// the outermost one at request time.
func applyMiddlewares(handler Handler, mids ...Middleware) Handler {
	for i := len(mids) - 1; i >= 0; i-- {
		if mid := mids[i]; mid != nil {
			handler = mid(handler)
		}
	}
	return handler
}
