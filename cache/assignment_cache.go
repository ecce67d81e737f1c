package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedAssignment remembers which station a request is being served from
// and where the worker was when the choice was made. A later position ping
// close to the cached coordinate can reuse the station without re-running
// selection.
type CachedAssignment struct {
	StationID  uint      `json:"station_id"`
	WorkerLat  float64   `json:"worker_lat"`
	WorkerLng  float64   `json:"worker_lng"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Store wraps the Redis client. All methods are nil-safe: with no Redis
// configured every read misses and every write is a no-op, so the server
// runs fine without a cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect dials Redis. An empty addr disables caching.
func Connect(addr, password string, db int, ttl time.Duration) *Store {
	if addr == "" {
		log.Println("ℹ️ [CACHE] No Redis address configured, assignment cache disabled")
		return &Store{ttl: ttl}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ [CACHE] Redis unreachable at %s: %v (cache disabled)", addr, err)
		return &Store{ttl: ttl}
	}
	log.Printf("✅ [CACHE] Connected to Redis at %s", addr)
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

func assignmentKey(requestID uint) string {
	return fmt.Sprintf("station:assign:%d", requestID)
}

// GetAssignment returns the cached station for a request, or ok=false on a
// miss or with caching disabled.
func (s *Store) GetAssignment(ctx context.Context, requestID uint) (CachedAssignment, bool) {
	var out CachedAssignment
	if !s.Enabled() {
		return out, false
	}
	raw, err := s.client.Get(ctx, assignmentKey(requestID)).Bytes()
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetAssignment records a station choice. Errors are logged, not returned;
// the cache is advisory.
func (s *Store) SetAssignment(ctx context.Context, requestID uint, a CachedAssignment) {
	if !s.Enabled() {
		return
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, assignmentKey(requestID), raw, s.ttl).Err(); err != nil {
		log.Printf("⚠️ [CACHE] Failed to cache assignment for request %d: %v", requestID, err)
	}
}

// InvalidateAssignment drops the cached station, called on reassignment and
// request completion.
func (s *Store) InvalidateAssignment(ctx context.Context, requestID uint) {
	if !s.Enabled() {
		return
	}
	if err := s.client.Del(ctx, assignmentKey(requestID)).Err(); err != nil {
		log.Printf("⚠️ [CACHE] Failed to invalidate assignment for request %d: %v", requestID, err)
	}
}

const workerGeoKey = "workers:positions"

// UpdateWorkerPosition mirrors the latest worker coordinate into a Redis
// geo set, keeping a cheap radius-query index alongside the database.
func (s *Store) UpdateWorkerPosition(ctx context.Context, workerID uint, lat, lng float64) {
	if !s.Enabled() {
		return
	}
	err := s.client.GeoAdd(ctx, workerGeoKey, &redis.GeoLocation{
		Name:      fmt.Sprintf("worker:%d", workerID),
		Latitude:  lat,
		Longitude: lng,
	}).Err()
	if err != nil {
		log.Printf("⚠️ [CACHE] Failed to update worker %d position: %v", workerID, err)
	}
}

// WorkersNear returns worker member names within radiusKm of a point, used
// for dashboard views. Empty when the cache is disabled.
func (s *Store) WorkersNear(ctx context.Context, lat, lng, radiusKm float64) []string {
	if !s.Enabled() {
		return nil
	}
	locs, err := s.client.GeoSearch(ctx, workerGeoKey, &redis.GeoSearchQuery{
		Latitude:   lat,
		Longitude:  lng,
		Radius:     radiusKm,
		RadiusUnit: "km",
	}).Result()
	if err != nil {
		return nil
	}
	return locs
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}
