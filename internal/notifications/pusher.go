package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
)

// Pusher delivers a persisted notification to whoever is listening live.
// Delivery is best effort; clients reconcile by fetching.
type Pusher interface {
	Push(ctx context.Context, notification models.Notification) error
}

// NopPusher drops every push.
type NopPusher struct{}

func (NopPusher) Push(context.Context, models.Notification) error { return nil }

type channelKeyer interface {
	ChannelKey(parts ...string) string
}

type channelPublisher interface {
	channelKeyer
	Publish(ctx context.Context, channel string, payload any) (int64, error)
}

// Channels names the live channels for one namespace prefix.
type Channels struct {
	keys   channelKeyer
	prefix string
}

func NewChannels(keys channelKeyer, prefix string) Channels {
	return Channels{keys: keys, prefix: prefix}
}

// User is the channel a single seller subscribes to.
func (c Channels) User(userID string) string {
	return c.keys.ChannelKey(c.prefix, "user", userID)
}

// Global receives public notifications.
func (c Channels) Global() string {
	return c.keys.ChannelKey(c.prefix, "global")
}

// RedisPusher publishes the notification JSON on the recipient's channel, or
// on the global channel for public records.
type RedisPusher struct {
	client   channelPublisher
	channels Channels
}

func NewRedisPusher(client channelPublisher, prefix string) *RedisPusher {
	return &RedisPusher{client: client, channels: NewChannels(client, prefix)}
}

func (p *RedisPusher) Push(ctx context.Context, notification models.Notification) error {
	channel := p.channels.Global()
	if !notification.IsGlobal {
		if notification.UserID == nil {
			return fmt.Errorf("notification %s has no recipient", notification.ID)
		}
		channel = p.channels.User(notification.UserID.String())
	}

	payload, err := json.Marshal(FromModel(notification))
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", notification.ID, err)
	}
	if _, err := p.client.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
