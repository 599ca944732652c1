package spira

import (
	"bytes"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
)

const (
	// TestRunFormatAutomated identifies submissions made by an automated runner.
	TestRunFormatAutomated = 2

	// RunnerName is the runner identity used by ReportPassFail.
	RunnerName = "Ginkgo-E2E"

	// FailedStackTrace is sent by ReportPassFail for failed tests; the real
	// trace is expected in the suite's own log.
	FailedStackTrace = "See logs for details"
)

// TestRunRecord is a single executed test's outcome. It is built for one
// report and discarded afterwards.
type TestRunRecord struct {
	StartTime        time.Time
	EndTime          time.Time
	RunnerName       string
	RunnerTestName   string
	RunnerMessage    string
	RunnerStackTrace string
	TestCaseID       int
	// TestSetID and ReleaseID are optional, zero means not supplied.
	TestSetID int
	ReleaseID int
	Status    Status
}

// testRunPayload fixes the order of fields on the wire. ReleaseId and
// TestSetId are only emitted when positive.
type testRunPayload struct {
	TestRunFormatID   int             `json:"TestRunFormatId"`
	RunnerAssertCount int             `json:"RunnerAssertCount"`
	StartDate         strfmt.DateTime `json:"StartDate"`
	EndDate           strfmt.DateTime `json:"EndDate"`
	RunnerName        string          `json:"RunnerName"`
	RunnerTestName    string          `json:"RunnerTestName"`
	RunnerMessage     string          `json:"RunnerMessage"`
	RunnerStackTrace  string          `json:"RunnerStackTrace"`
	TestCaseID        int             `json:"TestCaseId"`
	ReleaseID         int             `json:"ReleaseId,omitempty"`
	TestSetID         int             `json:"TestSetId,omitempty"`
	ExecutionStatusID int             `json:"ExecutionStatusId"`
}

// BuildPayload serialises a record into the body of a test-runs/record request.
func BuildPayload(rec TestRunRecord) ([]byte, error) {
	if err := checkText(
		"RunnerName", rec.RunnerName,
		"RunnerTestName", rec.RunnerTestName,
		"RunnerMessage", rec.RunnerMessage,
		"RunnerStackTrace", rec.RunnerStackTrace,
	); err != nil {
		return nil, err
	}

	payload := testRunPayload{
		TestRunFormatID:   TestRunFormatAutomated,
		RunnerAssertCount: 0,
		StartDate:         strfmt.DateTime(rec.StartTime),
		EndDate:           strfmt.DateTime(rec.EndTime),
		RunnerName:        rec.RunnerName,
		RunnerTestName:    rec.RunnerTestName,
		RunnerMessage:     rec.RunnerMessage,
		RunnerStackTrace:  rec.RunnerStackTrace,
		TestCaseID:        rec.TestCaseID,
		ReleaseID:         positiveOrZero(rec.ReleaseID),
		TestSetID:         positiveOrZero(rec.TestSetID),
		ExecutionStatusID: ExecutionStatusID(rec.Status),
	}
	return encode(payload)
}

// encode writes v as compact JSON. HTML escaping is off so text reaches the
// service as written.
func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encoding request body")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// checkText takes name, value pairs. The JSON encoder would silently replace
// invalid UTF-8, so it is refused here instead.
func checkText(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if !utf8.ValidString(pairs[i+1]) {
			return &SerializationError{Field: pairs[i]}
		}
	}
	return nil
}

func positiveOrZero(id int) int {
	if id > 0 {
		return id
	}
	return 0
}
