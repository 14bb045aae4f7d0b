// Package redistest provides setup and clean up for testing redis clients
// against an in process server.
package redistest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient starts an in process redis server and returns a client
// connected to it. The server is torn down when the test finishes.
func NewRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("expected to start miniredis: %s", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: srv.Addr(),
	})

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Errorf("failed to close redis client: %s", err)
		}
		srv.Close()
	})

	return client, srv
}
