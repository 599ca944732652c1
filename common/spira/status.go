package spira

import (
	"strings"

	"github.com/pkg/errors"
)

// Status is the outcome of a test run as understood by the test management service.
type Status string

const (
	Failed        Status = "FAILED"
	Passed        Status = "PASSED"
	NotRun        Status = "NOT_RUN"
	NotApplicable Status = "NOT_APPLICABLE"
	Blocked       Status = "BLOCKED"
	Caution       Status = "CAUTION"
)

// executionStatusIDs is the service's ExecutionStatusId table. These numbers
// are part of the remote contract and must never be renumbered.
var executionStatusIDs = map[Status]int{
	Failed:        1,
	Passed:        2,
	NotRun:        3,
	NotApplicable: 4,
	Blocked:       5,
	Caution:       6,
}

var statusNames = map[Status]string{
	Failed:        "Failed",
	Passed:        "Passed",
	NotRun:        "Not Run",
	NotApplicable: "N/A",
	Blocked:       "Blocked",
	Caution:       "Caution",
}

// AllStatuses lists every status in ExecutionStatusId order.
var AllStatuses = []Status{Failed, Passed, NotRun, NotApplicable, Blocked, Caution}

// ExecutionStatusID maps a status to the service's numeric code.
// A status missing from the table is reported as NotRun rather than rejected,
// so an outcome is never lost because of an unmapped value.
func ExecutionStatusID(s Status) int {
	if id, ok := executionStatusIDs[s]; ok {
		return id
	}
	return executionStatusIDs[NotRun]
}

// String returns the display name used by the service.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return string(s)
}

// ParseStatus accepts either the constant spelling ("NOT_RUN") or the display
// name ("Not Run"), case insensitively.
func ParseStatus(text string) (Status, error) {
	normalised := strings.ToUpper(strings.TrimSpace(text))
	normalised = strings.NewReplacer(" ", "_", "-", "_").Replace(normalised)
	if normalised == "N/A" {
		return NotApplicable, nil
	}
	s := Status(normalised)
	if _, ok := executionStatusIDs[s]; !ok {
		return "", errors.Errorf("unknown status %q", text)
	}
	return s, nil
}
