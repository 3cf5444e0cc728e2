// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package websocket streams alerts to connected dashboard clients. The
// hub is an alert notifier: the dispatcher delivers alerts into it like
// any other destination, and the hub fans them out to every connection.
package websocket

import (
	"context"
	"sync"

	"github.com/BTheCoderr/casetrail/internal/alerting"
	"github.com/BTheCoderr/casetrail/internal/logging"
)

// Message types for the alert feed.
const (
	MessageTypeAlert = "alert"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

// Message is one frame on the alert feed.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub maintains the set of connected clients and broadcasts alerts to
// them. Slow clients are dropped rather than allowed to block delivery.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes client lifecycle and broadcasts until the context ends.
// On shutdown every client connection is closed.
func (h *Hub) Run(ctx context.Context) error {
	log := logging.WithComponent("wshub")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("total_clients", total).Msg("alert feed client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("total_clients", total).Msg("alert feed client disconnected")
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// Name returns the notifier name.
func (h *Hub) Name() string { return "websocket" }

// Notify queues an alert for broadcast. Never blocks: when the broadcast
// buffer is full the alert is dropped, since the feed is a live view and
// the audit store is the durable record.
func (h *Hub) Notify(_ context.Context, alert *alerting.Alert) error {
	select {
	case h.broadcast <- Message{Type: MessageTypeAlert, Data: alert}:
	default:
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastToClients(msg Message) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- msg:
		default:
			// Client cannot keep up; drop it.
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
