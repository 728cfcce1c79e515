package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const subscriptionBuffer = 1024

// DialRedis connects to a Redis server and checks it with PING.
func DialRedis(ctx context.Context, creds Credentials) (Conn, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     creds.Addr,
		Username: creds.Username,
		Password: creds.Password,
		DB:       creds.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", creds.Addr, err)
	}
	return NewRedisConn(rdb), nil
}

// NewRedisConn adapts an existing go-redis client. Closing the Conn closes the
// client.
func NewRedisConn(rdb redis.UniversalClient) Conn {
	return &redisConn{rdb: rdb}
}

type redisConn struct {
	rdb redis.UniversalClient
}

func (c *redisConn) Publish(ctx context.Context, channel, payload string) (int64, error) {
	return c.rdb.Publish(ctx, channel, payload).Result()
}

func (c *redisConn) PSubscribe(ctx context.Context, patterns ...string) (Subscription, error) {
	sub := c.rdb.PSubscribe(ctx, patterns...)

	// wait for every confirmation so nothing published afterwards is missed
	for confirmed := 0; confirmed < len(patterns); {
		msg, err := sub.Receive(ctx)
		if err != nil {
			_ = sub.Close()
			return nil, fmt.Errorf("psubscribe: %w", err)
		}
		if _, ok := msg.(*redis.Subscription); ok {
			confirmed++
		}
	}

	return &redisSubscription{
		sub: sub,
		ch:  sub.Channel(redis.WithChannelSize(subscriptionBuffer)),
	}, nil
}

func (c *redisConn) BPop(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	res, err := c.rdb.BRPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res[1], true, nil
}

func (c *redisConn) Push(ctx context.Context, key, payload string, ttl time.Duration) error {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	return pushReplyLua.Run(ctx, c.rdb, []string{key}, payload, secs).Err()
}

func (c *redisConn) Close() error {
	return c.rdb.Close()
}

type redisSubscription struct {
	sub *redis.PubSub
	ch  <-chan *redis.Message
}

func (s *redisSubscription) Receive(ctx context.Context, timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-s.ch:
		if !ok {
			return nil, ErrClosed
		}
		kind := kindMessage
		if msg.Pattern != "" {
			kind = kindPMessage
		}
		return &Message{Kind: kind, Channel: msg.Channel, Pattern: msg.Pattern, Payload: msg.Payload}, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *redisSubscription) Close() error {
	return s.sub.Close()
}
