// Package userws pushes deployment updates to the owner's browser. Each
// client is bound to one owner channel; events for other owners never
// reach it.
package userws

import (
	"context"
	"encoding/json"

	"blogsmith/internal/logger"
)

type ServerEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type Hub struct {
	ctx    context.Context
	cancel context.CancelFunc

	owners map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	events     chan *ownerEvent

	log logger.Logger
}

type ownerEvent struct {
	ownerID string
	event   *ServerEvent
}

func NewHub(parent context.Context, log logger.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)

	return &Hub{
		ctx:    ctx,
		cancel: cancel,

		owners: make(map[string]map[*Client]bool),

		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *ownerEvent, 100),

		log: log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.log.Info("ws: hub shutting down")
			for _, clients := range h.owners {
				for client := range clients {
					close(client.send)
				}
			}
			return

		case client := <-h.register:
			if h.owners[client.OwnerID] == nil {
				h.owners[client.OwnerID] = make(map[*Client]bool)
			}
			h.owners[client.OwnerID][client] = true
			h.log.Info("ws: client registered", "owner_id", client.OwnerID, "clients", len(h.owners[client.OwnerID]))

		case client := <-h.unregister:
			clients := h.owners[client.OwnerID]
			if !clients[client] {
				continue
			}

			delete(clients, client)
			if len(clients) == 0 {
				delete(h.owners, client.OwnerID)
			}
			close(client.send)
			h.log.Info("ws: client unregistered", "owner_id", client.OwnerID)

		case evt := <-h.events:
			data, err := json.Marshal(evt.event)
			if err != nil {
				h.log.Error("ws: failed to marshal event", "error", err)
				continue
			}

			for client := range h.owners[evt.ownerID] {
				select {
				case client.send <- data:
				default:
					// Slow consumer; drop rather than block the hub.
				}
			}
		}
	}
}

func (h *Hub) Stop() { h.cancel() }

// Send queues an event for every connected client of one owner.
func (h *Hub) Send(ownerID string, event *ServerEvent) {
	select {
	case h.events <- &ownerEvent{ownerID: ownerID, event: event}:
	case <-h.ctx.Done():
	}
}
