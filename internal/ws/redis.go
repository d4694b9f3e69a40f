package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playmatatu/collisionlab/internal/lab"
	"github.com/redis/go-redis/v9"
)

// StartLabEventSubscriber forwards lab events from Redis to hub. Every server
// instance runs one, so a viewer receives updates whichever instance owns the lab.
func StartLabEventSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; lab event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, lab.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", lab.EventsChannel)
		for msg := range ch {
			var ev lab.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}
			if ev.Token == "" {
				log.Printf("[WS] event %s without lab token, ignoring", ev.Type)
				continue
			}
			hub.Dispatch(ev)
		}
	}()
}

// UseLocalEvents delivers m's events straight to hub when Redis is not configured.
func UseLocalEvents(m *lab.LabManager, hub *Hub) {
	m.SetLocalSink(hub.Dispatch)
}
