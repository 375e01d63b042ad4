package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const backboneChannel = "solace:events"

// frame is the backbone envelope. Origin lets an instance skip its own
// publications; local delivery already happened before the publish.
type frame struct {
	Origin string          `json:"origin"`
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

// Backbone relays group emissions across backend instances over Redis
// pub/sub, so a user's other device connected to a different instance still
// receives every event.
type Backbone struct {
	client     *redis.Client
	pubsub     *redis.PubSub
	instanceID string
}

// ConnectBackbone establishes the process-wide backbone connection. The
// caller decides what a failure means; absence of a backbone is a valid
// single-instance mode.
func ConnectBackbone(ctx context.Context, redisURL string) (*Backbone, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	b := &Backbone{
		client:     client,
		pubsub:     client.Subscribe(ctx, backboneChannel),
		instanceID: uuid.NewString(),
	}
	slog.Info("Broadcast backbone connected", "addr", opts.Addr, "instance_id", b.instanceID)
	return b, nil
}

// Start consumes backbone messages and hands foreign-origin events to the
// local registry. Runs until Close.
func (b *Backbone) Start(hub *Hub) {
	go func() {
		for msg := range b.pubsub.Channel() {
			b.dispatch([]byte(msg.Payload), hub.deliverLocal)
		}
	}()
}

func (b *Backbone) dispatch(payload []byte, deliver func(userID uuid.UUID, data []byte)) {
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		slog.Warn("dropped malformed backbone frame", "error", err)
		return
	}
	if f.Origin == b.instanceID {
		return
	}
	userID, err := uuid.Parse(f.UserID)
	if err != nil {
		slog.Warn("dropped backbone frame with bad user id", "user_id", f.UserID)
		return
	}
	deliver(userID, f.Data)
}

func (b *Backbone) Publish(ctx context.Context, userID uuid.UUID, data []byte) error {
	payload, err := json.Marshal(frame{
		Origin: b.instanceID,
		UserID: userID.String(),
		Data:   data,
	})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, backboneChannel, payload).Err()
}

func (b *Backbone) Close() error {
	if err := b.pubsub.Close(); err != nil {
		return err
	}
	return b.client.Close()
}
