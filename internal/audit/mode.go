// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

// Mode controls how audit write failures propagate to callers.
type Mode string

const (
	// ModeStrict fails the calling operation when the audit write fails.
	// Used for records whose absence is itself a compliance problem.
	ModeStrict Mode = "strict"

	// ModeBestEffort logs the failure and lets the calling operation
	// proceed. Used for high-volume telemetry records.
	ModeBestEffort Mode = "best_effort"
)

// modeFor returns the default write mode for an event type. Security,
// compliance and data modification records are strict; activity and
// telemetry records are best-effort.
func modeFor(t EventType) Mode {
	switch t {
	case EventTypeSecurity, EventTypeCompliance, EventTypeDataModification:
		return ModeStrict
	default:
		return ModeBestEffort
	}
}
