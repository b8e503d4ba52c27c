package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OutboxKey is the Redis list an external relay drains with BRPOP.
const OutboxKey = "mail:outbox"

// RedisOutbox queues rendered messages on a Redis list.
type RedisOutbox struct {
	client *redis.Client
	from   string
}

func NewRedisOutbox(redisURL, from string) (*RedisOutbox, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisOutboxWithClient(client, from), nil
}

func NewRedisOutboxWithClient(client *redis.Client, from string) *RedisOutbox {
	return &RedisOutbox{client: client, from: from}
}

func (o *RedisOutbox) SendConfirmationCode(ctx context.Context, email, username, code string) error {
	data, err := json.Marshal(confirmationMessage(o.from, email, username, code))
	if err != nil {
		return err
	}
	if err := o.client.LPush(ctx, OutboxKey, data).Err(); err != nil {
		return fmt.Errorf("queue email: %w", err)
	}
	return nil
}

func (o *RedisOutbox) Close() error {
	return o.client.Close()
}
