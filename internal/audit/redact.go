// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"github.com/goccy/go-json"

	"github.com/BTheCoderr/casetrail/internal/policy"
)

// RedactedMarker replaces the value of any sensitive field before it is
// written to a snapshot or metadata blob. Failure to redact is a data-leak
// defect, so redaction runs on every payload unconditionally.
const RedactedMarker = "[REDACTED]"

// Redact returns a deep copy of payload with every value whose key matches
// the sensitive-field list replaced by RedactedMarker. The check recurses
// through nested maps and through lists, including lists of maps. The input
// is never modified.
func Redact(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if policy.IsSensitiveName(k) {
			out[k] = RedactedMarker
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Redact(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = Redact(item)
		}
		return out
	default:
		return v
	}
}

// marshalRedacted redacts payload and serializes it. A nil payload yields
// nil so optional fields stay absent rather than becoming "null".
func marshalRedacted(field string, payload map[string]any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(Redact(payload))
	if err != nil {
		return nil, &SerializationError{Field: field, Err: err}
	}
	return data, nil
}
