// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package alerting

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/BTheCoderr/casetrail/internal/logging"
	"github.com/BTheCoderr/casetrail/internal/metrics"
)

// Dispatcher consumes alerts from the bus and fans them out to the
// configured notifiers. One failing notifier does not stop delivery to
// the others; messages are always acked since alerts are advisory and
// never replayed.
type Dispatcher struct {
	bus       *Bus
	notifiers []Notifier
	log       zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given notifiers.
func NewDispatcher(bus *Bus, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		bus:       bus,
		notifiers: notifiers,
		log:       logging.WithComponent("alertdispatch"),
	}
}

// Run consumes alerts until the context is canceled or the bus closes.
func (d *Dispatcher) Run(ctx context.Context) error {
	messages, err := d.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	d.log.Info().Int("notifiers", len(d.notifiers)).Msg("alert dispatcher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			d.deliver(ctx, msg.Payload)
			msg.Ack()
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, payload []byte) {
	var alert Alert
	if err := json.Unmarshal(payload, &alert); err != nil {
		d.log.Error().Err(err).Msg("malformed alert payload")
		return
	}
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, &alert); err != nil {
			metrics.AlertDeliveryErrors.WithLabelValues(n.Name()).Inc()
			d.log.Warn().
				Err(err).
				Str("notifier", n.Name()).
				Str("alert_id", alert.ID).
				Str("category", alert.Category).
				Msg("alert delivery failed")
		}
	}
}
