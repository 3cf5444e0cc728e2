// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package alerting

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/BTheCoderr/casetrail/internal/logging"
	"github.com/BTheCoderr/casetrail/internal/metrics"
)

// Topic is the in-process subject alerts are published on.
const Topic = "casetrail.alerts"

// Bus is an in-process alert bus backed by a Watermill go-channel
// pub/sub. Publishing is decoupled from notifier delivery: the audit
// write path publishes and returns; the dispatcher consumes.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the alert bus. Buffer bounds how many undelivered
// alerts are held before Publish blocks; zero uses a sane default.
func NewBus(buffer int64) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            buffer,
		BlockPublishUntilSubscriberAck: false,
	}, newWatermillLogger(logging.WithComponent("alertbus")))
	return &Bus{pubsub: pubsub}
}

// Publish serializes the alert onto the bus.
func (b *Bus) Publish(_ context.Context, alert *Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	msg := message.NewMessage(alert.ID, payload)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	metrics.RecordAlert(alert.Category, string(alert.Severity))
	return nil
}

// Subscribe returns the alert message stream. Intended for the dispatcher.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close shuts the bus down, releasing all subscribers.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// watermillLogger adapts zerolog to Watermill's logger interface.
type watermillLogger struct {
	log zerolog.Logger
}

func newWatermillLogger(log zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.log.Error().Err(err), fields).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.log.Info(), fields).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), fields).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.log.Trace(), fields).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	log := l.log
	for k, v := range fields {
		log = log.With().Interface(k, v).Logger()
	}
	return &watermillLogger{log: log}
}

func (l *watermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
