// README: Geo index backed by Redis GEO sets; results are re-checked with the exact haversine.
package geo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"farmhaul/internal/types"
)

const geoKeyPrefix = "farmhaul:geo:%s"

// redisSlack inflates the Redis search radius: Redis uses a slightly larger
// earth radius, so its circle must fully cover ours before the exact filter.
const redisSlack = 1.001

type RedisIndex struct {
	redis *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{redis: client}
}

func (x *RedisIndex) Upsert(ctx context.Context, kind Kind, id types.ID, p types.Point) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	if err := ValidatePoint(p); err != nil {
		return err
	}
	return x.redis.GeoAdd(ctx, geoKey(kind), &redis.GeoLocation{
		Name:      string(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (x *RedisIndex) Remove(ctx context.Context, kind Kind, id types.ID) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	return x.redis.ZRem(ctx, geoKey(kind), string(id)).Err()
}

func (x *RedisIndex) Nearby(ctx context.Context, kind Kind, center types.Point, radiusKm float64, limit int) ([]Match, error) {
	if err := validateQuery(kind, center, radiusKm, limit); err != nil {
		return nil, err
	}
	results, err := x.redis.GeoSearchLocation(ctx, geoKey(kind), &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusKm * redisSlack,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search %s: %w", kind, err)
	}

	sel := newSelector(limit)
	for _, r := range results {
		p := types.Point{Lat: r.Latitude, Lng: r.Longitude}
		d := DistanceKm(center, p)
		if d > radiusKm {
			continue
		}
		sel.offer(Match{ID: types.ID(r.Name), Kind: kind, Position: p, DistanceKm: d})
	}
	return sel.sorted(), nil
}

func geoKey(kind Kind) string {
	return fmt.Sprintf(geoKeyPrefix, string(kind))
}
