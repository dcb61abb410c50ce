package fleet

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"ridemap/internal/types"
)

func TestGeoMirror_SyncAndNearby(t *testing.T) {
	redisAddr := os.Getenv("RIDEMAP_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("RIDEMAP_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	ctx := context.Background()
	mirror := NewGeoMirror(rdb, fmt.Sprintf("test_%d", time.Now().UnixNano()), time.Minute)
	defer mirror.Clear(ctx)

	var vehicles []Vehicle
	for _, s := range DefaultSeeds() {
		vehicles = append(vehicles, s.Vehicle())
	}
	if err := mirror.Sync(ctx, vehicles); err != nil {
		t.Fatalf("sync: %v", err)
	}

	ids, err := mirror.Nearby(ctx, types.Point{Lat: 14.5995, Lng: 120.9843}, 0.1)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 1 || ids[0] != "1" {
		t.Errorf("expected only vehicle 1 within 100m, got %v", ids)
	}

	// A sync without vehicle 1 must drop it from the set.
	if err := mirror.Sync(ctx, vehicles[1:]); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	ids, err = mirror.Nearby(ctx, types.Point{Lat: 14.5995, Lng: 120.9843}, 0.1)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no vehicles after removal, got %v", ids)
	}
}
