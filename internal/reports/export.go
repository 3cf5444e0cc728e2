// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/audit"
)

// ExportJSON serializes a report or record slice as indented JSON.
func ExportJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export json: %w", err)
	}
	return data, nil
}

// eventCSVHeader is the column order for event exports.
var eventCSVHeader = []string{
	"id", "event_type", "severity", "actor_id", "action",
	"resource_type", "resource_id", "description", "created_at",
}

// ExportEventsCSV serializes audit events as CSV with a header row.
// Snapshots and metadata are omitted; CSV export is a tabular digest, not
// a full record dump.
func ExportEventsCSV(events []audit.Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(eventCSVHeader); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	for i := range events {
		e := &events[i]
		row := []string{
			e.ID,
			string(e.Type),
			string(e.Severity),
			e.ActorID,
			e.Action,
			e.ResourceType,
			e.ResourceID,
			e.Description,
			e.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportKeyCountsCSV serializes a top-N rollup as CSV.
func ExportKeyCountsCSV(name string, rows []KeyCount) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{name, "count"}); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Key, strconv.Itoa(row.Count)}); err != nil {
			return nil, fmt.Errorf("export csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	return buf.Bytes(), nil
}
