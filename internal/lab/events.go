package lab

import (
	"context"
	"encoding/json"
	"log"
)

const (
	// EventsChannel is the Redis pub/sub channel carrying lab events.
	EventsChannel = "lab_events"
	// IdleSetKey is the Redis sorted set of lab tokens scored by idle deadline.
	IdleSetKey = "lab_idle"

	EventLabState  = "lab_state"
	EventLabClosed = "lab_closed"
)

// Event is a notification about a lab, delivered to its viewers.
type Event struct {
	Type    string    `json:"type"`
	Token   string    `json:"token"`
	State   *Snapshot `json:"state,omitempty"`
	Message string    `json:"message,omitempty"`
}

// publish sends the event through Redis when available so every server
// instance sees it, and falls back to the in-process sink otherwise.
func (m *LabManager) publish(ev Event) {
	if m.rdb != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("[LAB] Failed to marshal %s event for lab %s: %v", ev.Type, ev.Token, err)
			return
		}
		err = m.rdb.Publish(context.Background(), EventsChannel, data).Err()
		if err == nil {
			return
		}
		log.Printf("[REDIS] publish %s for lab %s failed, delivering locally: %v", ev.Type, ev.Token, err)
	}

	m.mu.RLock()
	sink := m.sink
	m.mu.RUnlock()
	if sink != nil {
		sink(ev)
	}
}
