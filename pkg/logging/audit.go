package logging

import (
	"fmt"
	"strings"
)

// AuditEvent describes a security-relevant action.
type AuditEvent struct {
	Action  string
	Outcome string
	Target  string
	Details string
}

// Audit logs a security event at INFO level under the "Audit" subsystem.
func Audit(event AuditEvent) {
	parts := []string{
		fmt.Sprintf("action=%s", event.Action),
		fmt.Sprintf("outcome=%s", event.Outcome),
	}
	if event.Target != "" {
		parts = append(parts, fmt.Sprintf("target=%s", event.Target))
	}
	if event.Details != "" {
		parts = append(parts, fmt.Sprintf("details=%q", event.Details))
	}
	Info("Audit", "[AUDIT] %s", strings.Join(parts, " "))
}
