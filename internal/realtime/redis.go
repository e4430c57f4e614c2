package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDialer carries the channel over redis pub/sub: inbound messages are
// read from Inbox and outbound ones published to Outbox. The redis client
// authenticates on its own, so the token is not used.
type RedisDialer struct {
	Client *redis.Client
	Inbox  string
	Outbox string
}

// Dial implements Dialer.
func (d RedisDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	ps := d.Client.Subscribe(ctx, d.Inbox)

	// Wait for the subscription confirmation so failures surface here.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", d.Inbox, err)
	}
	return &redisConn{client: d.Client, ps: ps, outbox: d.Outbox}, nil
}

type redisConn struct {
	client *redis.Client
	ps     *redis.PubSub
	outbox string
}

func (c *redisConn) Write(ctx context.Context, payload []byte) error {
	if err := c.client.Publish(ctx, c.outbox, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", c.outbox, err)
	}
	return nil
}

func (c *redisConn) Read(ctx context.Context) ([]byte, error) {
	msg, err := c.ps.ReceiveMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("receiving message: %w", err)
	}
	return []byte(msg.Payload), nil
}

func (c *redisConn) Close() error {
	return c.ps.Close()
}
