// services/live/publisher.go

package live

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

const eventChannel = "absensi:events"

// Publisher pushes events onto the Redis channel the API process bridges
// into its websocket hub.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, eventChannel, data).Err()
}

// Bridge subscribes to the event channel and forwards every message to the
// hub until the context is cancelled. Run it in its own goroutine.
func Bridge(ctx context.Context, rdb *redis.Client, hub *Hub) {
	sub := rdb.Subscribe(ctx, eventChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				log.Printf("Event subscription closed")
				return
			}
			hub.Broadcast([]byte(msg.Payload))
		}
	}
}
