// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package audit

import (
	"errors"
	"fmt"
)

// ErrComplianceNotFound reports a compliance status update against an
// unknown record ID. Stores wrap it so callers can tell a missing record
// apart from a write failure.
var ErrComplianceNotFound = errors.New("compliance record not found")

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("audit validation: %s: %s", e.Field, e.Reason)
}

// PersistenceError reports a store write or read failure. The audit trail is
// a compliance artifact, so these are logged and re-raised rather than
// swallowed; callers decide whether the business operation should abort.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("audit persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SerializationError reports a metadata or snapshot payload that cannot be
// serialized to a storable form.
type SerializationError struct {
	Field string
	Err   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("audit serialization: %s: %v", e.Field, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsSerialization reports whether err is a SerializationError.
func IsSerialization(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}
