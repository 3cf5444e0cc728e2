// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BTheCoderr/casetrail/internal/metrics"
)

func TestInstrumentedStoreCountsEvents(t *testing.T) {
	store := Instrument(NewMemoryStore(0))
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.EventsLogged.WithLabelValues("security", "high"))
	err := store.InsertEvent(ctx, &Event{
		ID:        "e1",
		Type:      EventTypeSecurity,
		Severity:  SeverityHigh,
		Action:    "failed_login",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	after := testutil.ToFloat64(metrics.EventsLogged.WithLabelValues("security", "high"))
	if after != before+1 {
		t.Errorf("events counter = %v, want %v", after, before+1)
	}

	// The wrapped store still satisfies the full interface.
	events, err := store.QueryEvents(ctx, QueryFilter{})
	if err != nil || len(events) != 1 {
		t.Errorf("QueryEvents = %v events, err %v", len(events), err)
	}
}
