package cache

import (
	"context"
	"testing"
	"time"

	"shopstack/backend/internal/domain"
)

func TestNoopDashboardCacheAlwaysMisses(t *testing.T) {
	c := NoopDashboardCache{}
	ctx := context.Background()

	if err := c.Set(ctx, "k", &domain.Dashboard{ShopID: "s"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected miss without error, got ok=%v err=%v", ok, err)
	}
	if err := c.Bump(ctx, "s"); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if v, _ := c.Version(ctx, "s"); v != 0 {
		t.Fatalf("expected version 0, got %d", v)
	}
}

func TestRedisDashboardCacheUnreachableReturnsError(t *testing.T) {
	c := NewRedisDashboardCache("127.0.0.1:1", "", 0)
	t.Cleanup(func() {
		_ = c.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err == nil {
		t.Fatalf("expected ping to an unused port to fail")
	}
}
