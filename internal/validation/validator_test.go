// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	Status      string `validate:"required,oneof=completed failed"`
	ProcessedBy string `validate:"required"`
	Limit       int    `validate:"min=1,max=1000"`
}

func TestValidateStructPasses(t *testing.T) {
	req := sampleRequest{Status: "completed", ProcessedBy: "admin", Limit: 10}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("ValidateStruct() = %v, want nil", err)
	}
}

func TestValidateStructCollectsAllFailures(t *testing.T) {
	req := sampleRequest{Status: "maybe", Limit: 0}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}

	if len(err.Fields()) != 3 {
		t.Errorf("Fields() len = %d, want 3", len(err.Fields()))
	}
	if !strings.Contains(err.Error(), "Status must be one of") {
		t.Errorf("Error() = %q, want oneof message for Status", err.Error())
	}
	if !strings.Contains(err.Error(), "ProcessedBy is required") {
		t.Errorf("Error() = %q, want required message for ProcessedBy", err.Error())
	}

	details := err.Details()
	fields, ok := details["fields"].([]map[string]any)
	if !ok {
		t.Fatalf("Details()[fields] type = %T, want slice of maps", details["fields"])
	}
	if len(fields) != 3 {
		t.Errorf("details fields len = %d, want 3", len(fields))
	}
}
