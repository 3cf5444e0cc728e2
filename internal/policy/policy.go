// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package policy centralizes the severity rules, sensitive-field list, and
// threshold constants shared by the specialized audit loggers. Keeping them
// in one table avoids each logger restating its own copy of the cutoffs.
package policy

import "strings"

// Severity is the ordered severity scale for audit events.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for comparison.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the numeric order of a severity. Unknown severities rank lowest.
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is at or above the given severity.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// Valid reports whether s is one of the defined severity levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Max returns the higher of two severities.
func Max(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// sensitiveFields are field/resource name fragments whose presence marks data
// as sensitive. Matching is case-insensitive and substring-based so that
// names like "user_password_hash" or "SSN" are caught.
var sensitiveFields = []string{
	"password",
	"ssn",
	"credit_card",
	"bank_account",
	"api_key",
	"token",
	"secret",
	"personal_id",
	"phone",
	"address",
}

// SensitiveFields returns a copy of the sensitive-field list.
func SensitiveFields() []string {
	out := make([]string, len(sensitiveFields))
	copy(out, sensitiveFields)
	return out
}

// IsSensitiveName reports whether a field or resource name refers to
// sensitive data.
func IsSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveFields {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// AnySensitive reports whether any of the given names is sensitive.
func AnySensitive(names []string) bool {
	for _, n := range names {
		if IsSensitiveName(n) {
			return true
		}
	}
	return false
}

// BulkHighThreshold is the affected-record count above which a non-delete
// bulk operation is rated HIGH.
const BulkHighThreshold = 100

// Pattern-tracker limits.
const (
	// HistoryCap bounds the per-key history list; oldest entries are
	// evicted first once the cap is exceeded.
	HistoryCap = 100

	// SuspicionTotalThreshold and SuspicionDistinctThreshold together flag
	// an actor as suspicious: more than 50 accesses spread across more
	// than 20 distinct resources within the tracker's lifetime.
	SuspicionTotalThreshold    = 50
	SuspicionDistinctThreshold = 20
)

// PeakRatio is the fraction of the maximum hourly/daily count at or above
// which an hour or day is included in the peak set.
const PeakRatio = 0.8

// TopN is the truncation size for "most accessed" / "most changed" rollups.
const TopN = 20

// ForDataAccess computes severity for a read of the given fields or resource.
// Access touching sensitive data is HIGH; everything else is LOW.
func ForDataAccess(resourceType string, fields []string) Severity {
	if IsSensitiveName(resourceType) || AnySensitive(fields) {
		return SeverityHigh
	}
	return SeverityLow
}

// ForModification computes severity for a data modification.
//   - DELETE is always HIGH.
//   - Modifications touching sensitive fields are HIGH.
//   - UPDATE/MODIFY are MEDIUM.
//   - Everything else is LOW.
func ForModification(action, resourceType string, fields []string) Severity {
	upper := strings.ToUpper(action)
	if upper == "DELETE" {
		return SeverityHigh
	}
	if IsSensitiveName(resourceType) || AnySensitive(fields) {
		return SeverityHigh
	}
	if upper == "UPDATE" || upper == "MODIFY" {
		return SeverityMedium
	}
	return SeverityLow
}

// ForBulkOperation computes severity for a bulk operation.
// Bulk DELETE is CRITICAL regardless of count. For other operation types the
// affected-record count decides: more than BulkHighThreshold records is HIGH,
// anything smaller is LOW.
func ForBulkOperation(operationType string, affectedCount int) Severity {
	if strings.ToUpper(operationType) == "DELETE" {
		return SeverityCritical
	}
	if affectedCount > BulkHighThreshold {
		return SeverityHigh
	}
	return SeverityLow
}

// ForExport computes severity for a data export: HIGH when sensitive fields
// are included, MEDIUM otherwise.
func ForExport(fields []string) Severity {
	if AnySensitive(fields) {
		return SeverityHigh
	}
	return SeverityMedium
}
