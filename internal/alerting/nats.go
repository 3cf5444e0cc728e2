// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

//go:build nats

package alerting

import (
	"context"
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsserver "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/BTheCoderr/casetrail/internal/logging"
)

// NATSSubject is the subject alerts are published on when the NATS
// notifier is enabled.
const NATSSubject = "casetrail.alerts.out"

// NATSConfig configures the NATS alert notifier.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	Embedded      bool          `koanf:"embedded"`
	StoreDir      string        `koanf:"store_dir"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// EmbeddedServer wraps an in-process NATS server for single-instance
// deployments without an external broker.
type EmbeddedServer struct {
	server    *natsserver.Server
	clientURL string
}

// NewEmbeddedServer starts an embedded NATS server and waits until it
// accepts connections.
func NewEmbeddedServer(cfg NATSConfig) (*EmbeddedServer, error) {
	opts := &natsserver.Options{
		ServerName: "casetrail-alerts",
		Host:       "127.0.0.1",
		Port:       4222,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoLog:      false,
	}
	ns, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string { return s.clientURL }

// Shutdown stops the server and waits for completion.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()
	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// NATSNotifier forwards alerts to a NATS subject so external consumers
// can subscribe to the alert stream.
type NATSNotifier struct {
	publisher message.Publisher
}

// NewNATSNotifier connects a Watermill NATS publisher to the given URL.
func NewNATSNotifier(cfg NATSConfig) (*NATSNotifier, error) {
	maxReconnects := cfg.MaxReconnects
	if maxReconnects == 0 {
		maxReconnects = 60
	}
	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}

	logger := newWatermillLogger(logging.WithComponent("natsalerts"))
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	return &NATSNotifier{publisher: pub}, nil
}

// Name returns the notifier name.
func (n *NATSNotifier) Name() string { return "nats" }

// Notify publishes the alert to the alert subject.
func (n *NATSNotifier) Notify(_ context.Context, alert *Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return n.publisher.Publish(NATSSubject, message.NewMessage(alert.ID, payload))
}

// Close releases the underlying publisher connection.
func (n *NATSNotifier) Close() error {
	return n.publisher.Close()
}
