package notifications

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Listener streams the live payloads a seller should see: their own channel
// plus the global one. The returned stop func releases the subscription.
type Listener interface {
	Listen(ctx context.Context, userID string) (<-chan []byte, func() error, error)
}

type channelSubscriber interface {
	channelKeyer
	Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error)
}

type RedisListener struct {
	client   channelSubscriber
	channels Channels
}

func NewRedisListener(client channelSubscriber, prefix string) *RedisListener {
	return &RedisListener{client: client, channels: NewChannels(client, prefix)}
}

func (l *RedisListener) Listen(ctx context.Context, userID string) (<-chan []byte, func() error, error) {
	sub, err := l.client.Subscribe(ctx, l.channels.User(userID), l.channels.Global())
	if err != nil {
		return nil, nil, err
	}

	out := make(chan []byte)
	go forward(ctx, sub.Channel(), out)
	return out, sub.Close, nil
}

func forward(ctx context.Context, in <-chan *redis.Message, out chan<- []byte) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}
