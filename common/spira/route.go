package spira

import (
	"encoding/base64"
	"fmt"
	"strings"

	"demoblaze-e2e/common/e2e_config"
)

const (
	// RecordPath is appended to the base URL by RecordRoute.
	RecordPath = "/Services/v6_0/RestService.svc/projects/%d/test-runs/record"
	// LegacyPath is appended to the base URL by LegacyRoute.
	LegacyPath = "/api/v1/test-runs"
)

// Route is one wire contract for submitting a test run: where it goes, how it
// is authenticated and what the body looks like.
type Route interface {
	Endpoint(baseURL string, projectID int) string
	Authorization(user, apiKey string) string
	Body(rec TestRunRecord, projectID int) ([]byte, error)
}

// RouteFor returns the route selected by a configuration mode.
func RouteFor(mode string) (Route, error) {
	switch mode {
	case e2e_config.ModeRecord, "":
		return RecordRoute{}, nil
	case e2e_config.ModeLegacy:
		return LegacyRoute{}, nil
	}
	return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown mode %q", mode)}
}

// RecordRoute posts a full TestRunRecord to projects/{id}/test-runs/record
// using HTTP Basic authentication with the user name and API key.
type RecordRoute struct{}

func (RecordRoute) Endpoint(baseURL string, projectID int) string {
	return trimBase(baseURL) + fmt.Sprintf(RecordPath, projectID)
}

func (RecordRoute) Authorization(user, apiKey string) string {
	return BasicAuthorization(user, apiKey)
}

func (RecordRoute) Body(rec TestRunRecord, _ int) ([]byte, error) {
	return BuildPayload(rec)
}

// LegacyRoute posts a short pass/fail note to /api/v1/test-runs using the API
// key as a bearer token.
type LegacyRoute struct{}

type legacyPayload struct {
	ProjectID  int    `json:"project_id"`
	TestCaseID int    `json:"test_case_id"`
	Status     string `json:"status"`
	Notes      string `json:"notes"`
}

func (LegacyRoute) Endpoint(baseURL string, _ int) string {
	return trimBase(baseURL) + LegacyPath
}

func (LegacyRoute) Authorization(_, apiKey string) string {
	return "Bearer " + apiKey
}

func (LegacyRoute) Body(rec TestRunRecord, projectID int) ([]byte, error) {
	if err := checkText("RunnerMessage", rec.RunnerMessage); err != nil {
		return nil, err
	}
	return encode(legacyPayload{
		ProjectID:  projectID,
		TestCaseID: rec.TestCaseID,
		Status:     rec.Status.String(),
		Notes:      rec.RunnerMessage,
	})
}

// BasicAuthorization returns the Authorization header value for HTTP Basic
// authentication over the UTF-8 bytes of "user:apiKey".
func BasicAuthorization(user, apiKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+apiKey))
}

// trimBase strips exactly one trailing slash.
func trimBase(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/")
}
