// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package main

// version is overridden at build time via
// -ldflags "-X main.version=v1.2.3".
var version = "dev"
