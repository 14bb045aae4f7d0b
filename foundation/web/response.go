package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Respond sends the data as JSON with the given status code and records the
// status code into the request metadata.
func Respond(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	//if ctx is cancelled, that means client is disconnected
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("client is disconnected")
		}
	}

	setStatusCode(ctx, statusCode)

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}
	return nil
}
