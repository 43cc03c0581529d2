// Package cache keeps the class listings of each school in Redis.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
)

const keyPrefix = "kelasi:classes:"

// ClassListings caches the active classes of a school. Entries expire after the configured TTL
// and are dropped whenever an enrollment or a class change commits.
type ClassListings struct {
	client *redis.Client
	ttl    time.Duration
}

var _ classroom.ListingCache = (*ClassListings)(nil)

// NewClient connects to the configured Redis server.
func NewClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewClassListings(client *redis.Client, ttl time.Duration) *ClassListings {
	return &ClassListings{client: client, ttl: ttl}
}

func key(schoolID int) string {
	return keyPrefix + strconv.Itoa(schoolID)
}

func (c *ClassListings) GetClasses(ctx context.Context, schoolID int) ([]classroom.Class, bool, error) {
	raw, err := c.client.Get(ctx, key(schoolID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "reading class listing")
	}

	var classes []classroom.Class
	if err = json.Unmarshal(raw, &classes); err != nil {
		// a corrupt entry is a miss: it gets overwritten on the next fill
		return nil, false, errors.Wrap(err, "decoding class listing")
	}
	return classes, true, nil
}

func (c *ClassListings) SetClasses(ctx context.Context, schoolID int, classes []classroom.Class) error {
	raw, err := json.Marshal(classes)
	if err != nil {
		return errors.Wrap(err, "encoding class listing")
	}
	return errors.Wrap(c.client.Set(ctx, key(schoolID), raw, c.ttl).Err(), "writing class listing")
}

func (c *ClassListings) Invalidate(ctx context.Context, schoolID int) error {
	return errors.Wrap(c.client.Del(ctx, key(schoolID)).Err(), "dropping class listing")
}
