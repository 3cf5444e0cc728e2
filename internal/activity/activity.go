// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// Package activity records user lifecycle events: logins, logouts and
// profile changes, plus free-form activity entries.
package activity

import (
	"context"

	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/policy"
)

// Activity types recorded by this logger.
const (
	TypeLogin         = "login"
	TypeLoginFailed   = "login_failed"
	TypeLogout        = "logout"
	TypeProfileChange = "profile_change"
)

// Logger records user activity events.
type Logger struct {
	audit *audit.Service
}

// NewLogger creates a user activity logger.
func NewLogger(svc *audit.Service) *Logger {
	return &Logger{audit: svc}
}

// LogActivity records a free-form user activity.
func (l *Logger) LogActivity(ctx context.Context, userID, activityType, description string, details map[string]any) (*audit.Event, error) {
	return l.audit.LogUserActivity(ctx, audit.ActivityParams{
		UserID:       userID,
		ActivityType: activityType,
		Description:  description,
		Details:      details,
	})
}

// LogLogin records a login attempt. Failed attempts are recorded as
// security events instead of plain activity.
func (l *Logger) LogLogin(ctx context.Context, userID string, success bool) (*audit.Event, error) {
	if !success {
		return l.audit.LogSecurityEvent(ctx, audit.SecurityParams{
			UserID:   userID,
			Kind:     TypeLoginFailed,
			Severity: policy.SeverityMedium,
		})
	}
	return l.audit.LogUserActivity(ctx, audit.ActivityParams{
		UserID:       userID,
		ActivityType: TypeLogin,
	})
}

// LogLogout records a logout.
func (l *Logger) LogLogout(ctx context.Context, userID string) (*audit.Event, error) {
	return l.audit.LogUserActivity(ctx, audit.ActivityParams{
		UserID:       userID,
		ActivityType: TypeLogout,
	})
}

// LogProfileChange records a profile update with the changed field names.
// Values are not captured here; the data access logger holds the diff.
func (l *Logger) LogProfileChange(ctx context.Context, userID string, changedFields []string) (*audit.Event, error) {
	return l.audit.LogUserActivity(ctx, audit.ActivityParams{
		UserID:       userID,
		ActivityType: TypeProfileChange,
		Details: map[string]any{
			"changed_fields": changedFields,
			"is_sensitive":   policy.AnySensitive(changedFields),
		},
	})
}
