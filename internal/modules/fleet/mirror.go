// README: Redis GEO mirror of live fleet positions for external map consumers.
package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ridemap/internal/types"
)

const geoKeyPrefix = "ridemap:session:%s:fleet"

// GeoMirror keeps one GEO sorted set per session. The key expires after ttl
// without ticks, so nothing outlives the session.
type GeoMirror struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

func NewGeoMirror(client *redis.Client, sessionID string, ttl time.Duration) *GeoMirror {
	return &GeoMirror{redis: client, key: geoKey(sessionID), ttl: ttl}
}

// Sync replaces the mirrored set with vehicles in one transaction.
func (m *GeoMirror) Sync(ctx context.Context, vehicles []Vehicle) error {
	pipe := m.redis.TxPipeline()
	pipe.Del(ctx, m.key)
	if len(vehicles) > 0 {
		locs := make([]*redis.GeoLocation, len(vehicles))
		for i, v := range vehicles {
			locs[i] = &redis.GeoLocation{
				Name:      string(v.ID),
				Longitude: v.Coordinate.Lng,
				Latitude:  v.Coordinate.Lat,
			}
		}
		pipe.GeoAdd(ctx, m.key, locs...)
		if m.ttl > 0 {
			pipe.Expire(ctx, m.key, m.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Nearby returns mirrored vehicle ids within radiusKm of p, closest first.
func (m *GeoMirror) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := m.redis.GeoSearch(ctx, m.key, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

// Clear drops the mirrored set; called when the session closes.
func (m *GeoMirror) Clear(ctx context.Context) error {
	return m.redis.Del(ctx, m.key).Err()
}

func geoKey(sessionID string) string {
	return fmt.Sprintf(geoKeyPrefix, sessionID)
}
