package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients keeps key-value traffic and pub/sub on separate connections so
// a blocked subscription never stalls state writes.
type RedisClients struct {
	Store  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(ctx context.Context, redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clients := &RedisClients{Store: redis.NewClient(opt)}
	subOpt := *opt
	subOpt.ClientName = "studyhub-pubsub"
	clients.PubSub = redis.NewClient(&subOpt)

	for role, c := range map[string]*redis.Client{"store": clients.Store, "pubsub": clients.PubSub} {
		if err := c.Ping(ctx).Err(); err != nil {
			clients.Close()
			return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
		}
	}
	return clients, nil
}

func (r *RedisClients) Close() error {
	return errors.Join(r.Store.Close(), r.PubSub.Close())
}
