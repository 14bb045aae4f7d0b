package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/deferq/deferq/business/engine/lease"
	"github.com/deferq/deferq/business/redistest"
)

func TestAcquireAndExtend(t *testing.T) {
	client, _ := redistest.NewRedisClient(t)
	ctx := context.Background()

	l, err := lease.New(client, "engine-lease", time.Second*5)
	if err != nil {
		t.Fatalf("expected to create a lease: %s", err)
	}

	held, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected to acquire the lease: %s", err)
	}
	if !held {
		t.Fatal("expected the lease to be held")
	}

	//the holder re-acquires on every poll
	held, err = l.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected to extend the lease: %s", err)
	}
	if !held {
		t.Fatal("expected the holder to keep the lease")
	}
}

func TestSecondInstanceIsFencedOut(t *testing.T) {
	client, _ := redistest.NewRedisClient(t)
	ctx := context.Background()

	first, err := lease.New(client, "engine-lease", time.Second*5)
	if err != nil {
		t.Fatalf("expected to create the first lease: %s", err)
	}

	second, err := lease.New(client, "engine-lease", time.Second*5)
	if err != nil {
		t.Fatalf("expected to create the second lease: %s", err)
	}

	held, err := first.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected to acquire the lease: %s", err)
	}
	if !held {
		t.Fatal("expected the first instance to hold the lease")
	}

	held, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected the second acquire to not error: %s", err)
	}
	if held {
		t.Fatal("expected the second instance to be fenced out")
	}

	//release hands it over
	if err := first.Release(ctx); err != nil {
		t.Fatalf("expected to release the lease: %s", err)
	}

	held, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected to acquire the released lease: %s", err)
	}
	if !held {
		t.Fatal("expected the second instance to take over")
	}
}

func TestReleaseDoesNotStealForeignLease(t *testing.T) {
	client, _ := redistest.NewRedisClient(t)
	ctx := context.Background()

	first, err := lease.New(client, "engine-lease", time.Second*5)
	if err != nil {
		t.Fatalf("expected to create the first lease: %s", err)
	}

	second, err := lease.New(client, "engine-lease", time.Second*5)
	if err != nil {
		t.Fatalf("expected to create the second lease: %s", err)
	}

	if _, err := first.Acquire(ctx); err != nil {
		t.Fatalf("expected to acquire the lease: %s", err)
	}

	//a non holder releasing is a no-op
	if err := second.Release(ctx); err != nil {
		t.Fatalf("expected the foreign release to not error: %s", err)
	}

	held, err := first.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected to extend the lease: %s", err)
	}
	if !held {
		t.Fatal("expected the first instance to still hold the lease")
	}
}

func TestExpiredLeaseIsTakeable(t *testing.T) {
	client, srv := redistest.NewRedisClient(t)
	ctx := context.Background()

	first, err := lease.New(client, "engine-lease", time.Second)
	if err != nil {
		t.Fatalf("expected to create the first lease: %s", err)
	}

	if _, err := first.Acquire(ctx); err != nil {
		t.Fatalf("expected to acquire the lease: %s", err)
	}

	//simulate the holder dying past its ttl
	srv.FastForward(time.Second * 2)

	second, err := lease.New(client, "engine-lease", time.Second)
	if err != nil {
		t.Fatalf("expected to create the second lease: %s", err)
	}

	held, err := second.Acquire(ctx)
	if err != nil {
		t.Fatalf("expected to acquire the expired lease: %s", err)
	}
	if !held {
		t.Fatal("expected the second instance to take the expired lease")
	}
}
