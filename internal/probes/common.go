// Package probes contains the seventeen concrete probe implementations. Each
// file is one probe; all share the internal/probe.Probe contract and the
// helpers in this file.
package probes

import (
	"strings"
	"time"

	"github.com/infraguard/preflight/internal/probe"
)

// missing joins the names of empty required fields, or "" if none are
// missing. Nothing calls it: the runner's skip result for an unconfigured
// probe carries a generic message that does not name the missing keys.
func missing(fields map[string]string) string {
	var names []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func allPresent(fields map[string]string) bool {
	for _, v := range fields {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func ok(message string, details map[string]interface{}) probe.SubTestResult {
	return probe.SubTestResult{Success: true, Message: message, Details: details}
}

func fail(message, remediation, errorCode string) probe.SubTestResult {
	return probe.SubTestResult{Success: false, Message: message, Remediation: remediation, ErrorCode: errorCode}
}

// durationMS renders a duration as the plain millisecond float the
// sub-test detail maps use.
func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
