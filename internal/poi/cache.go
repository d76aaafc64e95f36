package poi

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKey = "pois:snapshot"
	snapshotTTL = time.Hour
)

// Cache owns the in-memory POI snapshot. It is the single source of truth
// for reads; only the service's mutation methods touch it. A load generation
// counter discards results of loads that were superseded while in flight.
//
// When a redis client is configured, successful loads also write the
// serialized snapshot there and every mutation deletes it, so other
// instances (and restarts) re-read truth instead of serving stale data.
type Cache struct {
	mu     sync.RWMutex
	pois   []POI
	loaded bool
	gen    uint64

	redis *redis.Client
}

func NewCache(redisClient *redis.Client) *Cache {
	return &Cache{redis: redisClient}
}

// Snapshot returns a copy of the current POI set. ok is false when no
// successful load has happened since the last invalidation.
func (c *Cache) Snapshot() ([]POI, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, false
	}
	out := make([]POI, len(c.pois))
	copy(out, c.pois)
	return out, true
}

// beginLoad marks a new load in flight and returns its generation.
func (c *Cache) beginLoad() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}

// completeLoad installs a fetched snapshot. A stale result (another load or
// a mutation bumped the generation meanwhile) is discarded.
func (c *Cache) completeLoad(ctx context.Context, gen uint64, pois []POI) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.pois = pois
	c.loaded = true
	c.mu.Unlock()

	c.writeRedis(ctx, pois)
	return true
}

// upsert inserts or replaces one POI after a successful write. Fields the
// write does not carry (hero URL, created_at) survive from the old entry.
func (c *Cache) upsert(ctx context.Context, p POI) {
	c.mu.Lock()
	c.gen++
	replaced := false
	for i := range c.pois {
		if c.pois[i].ID == p.ID {
			if p.HeroPhotoURL == "" {
				p.HeroPhotoURL = c.pois[i].HeroPhotoURL
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = c.pois[i].CreatedAt
			}
			c.pois[i] = p
			replaced = true
			break
		}
	}
	if !replaced && c.loaded {
		c.pois = append(c.pois, p)
	}
	c.mu.Unlock()

	c.dropRedis(ctx)
}

func (c *Cache) remove(ctx context.Context, id string) {
	c.mu.Lock()
	c.gen++
	for i := range c.pois {
		if c.pois[i].ID == id {
			c.pois = append(c.pois[:i], c.pois[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.dropRedis(ctx)
}

func (c *Cache) setHeroURL(ctx context.Context, poiID, url string) {
	c.mu.Lock()
	c.gen++
	for i := range c.pois {
		if c.pois[i].ID == poiID {
			c.pois[i].HeroPhotoURL = url
			break
		}
	}
	c.mu.Unlock()

	c.dropRedis(ctx)
}

// Invalidate drops the snapshot entirely; the next read must reload.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	c.pois = nil
	c.loaded = false
	c.mu.Unlock()

	c.dropRedis(ctx)
}

func (c *Cache) fromRedis(ctx context.Context) ([]POI, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return nil, false
	}
	var pois []POI
	if err := json.Unmarshal(raw, &pois); err != nil {
		return nil, false
	}
	return pois, true
}

func (c *Cache) writeRedis(ctx context.Context, pois []POI) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(pois)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, snapshotKey, raw, snapshotTTL).Err(); err != nil {
		log.Printf("redis snapshot write error: %v", err)
	}
}

func (c *Cache) dropRedis(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, snapshotKey).Err(); err != nil {
		log.Printf("redis snapshot drop error: %v", err)
	}
}
