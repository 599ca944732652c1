package spira

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"demoblaze-e2e/common/e2e_config"
)

// RunParams describes one outcome to record. TestSetID and ReleaseID fall
// back to the configured defaults when zero; pass a negative id to leave the
// field out even when a default is configured. ReportPassFail uses zero, so
// it picks up the defaults too.
type RunParams struct {
	TestCaseID       int
	TestSetID        int
	ReleaseID        int
	Status           Status
	RunnerName       string
	RunnerTestName   string
	RunnerMessage    string
	RunnerStackTrace string
}

// Client records test runs in the test management service.
// It holds no mutable state and may be shared between goroutines.
type Client struct {
	cfg       e2e_config.SpiraConfig
	route     Route
	client    HTTPClient
	transport *Transport
	log       logr.Logger
	now       func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, which is bounded by the
// configured timeout.
func WithHTTPClient(client HTTPClient) Option {
	return func(r *Client) { r.client = client }
}

// WithLogger replaces the default "spira" logger.
func WithLogger(log logr.Logger) Option {
	return func(r *Client) { r.log = log }
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Client) { r.now = now }
}

// WithRoute overrides the route selected by the configured mode.
func WithRoute(route Route) Option {
	return func(r *Client) { r.route = route }
}

func newClient(cfg e2e_config.SpiraConfig, opts []Option) *Client {
	r := &Client{
		cfg: cfg,
		log: logf.Log.WithName("spira"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewClient validates cfg and returns a Client for it.
func NewClient(cfg e2e_config.SpiraConfig, opts ...Option) (*Client, error) {
	return newClient(cfg, opts).init()
}

func (r *Client) init() (*Client, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	if r.route == nil {
		route, err := RouteFor(r.cfg.Mode)
		if err != nil {
			return nil, err
		}
		r.route = route
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: r.cfg.Timeout}
	}
	r.transport = NewTransport(r.client, r.log)
	return r, nil
}

// RecordTestRun submits one run and returns the service's response text.
// The start and end dates are both the time of the call.
func (r *Client) RecordTestRun(p RunParams) (string, error) {
	if p.TestCaseID <= 0 {
		return "", &ConfigurationError{Reason: fmt.Sprintf("test case id must be positive, got %d", p.TestCaseID)}
	}
	if strings.TrimSpace(p.RunnerTestName) == "" {
		return "", &ConfigurationError{Reason: fmt.Sprintf("runner test name is required for test case %d", p.TestCaseID)}
	}
	if p.TestSetID == 0 {
		p.TestSetID = r.cfg.TestSetID
	}
	if p.ReleaseID == 0 {
		p.ReleaseID = r.cfg.ReleaseID
	}

	now := r.now()
	rec := TestRunRecord{
		StartTime:        now,
		EndTime:          now,
		RunnerName:       p.RunnerName,
		RunnerTestName:   p.RunnerTestName,
		RunnerMessage:    p.RunnerMessage,
		RunnerStackTrace: p.RunnerStackTrace,
		TestCaseID:       p.TestCaseID,
		TestSetID:        p.TestSetID,
		ReleaseID:        p.ReleaseID,
		Status:           p.Status,
	}
	body, err := r.route.Body(rec, r.cfg.ProjectID)
	if err != nil {
		return "", err
	}

	url := r.route.Endpoint(r.cfg.BaseURL, r.cfg.ProjectID)
	resp, err := r.transport.Post(url, r.route.Authorization(r.cfg.User, r.cfg.APIKey), body)
	if err != nil {
		return "", err
	}

	if id := gjson.Get(resp, "TestRunId"); id.Exists() {
		r.log.Info("Recorded test run", "testRunId", id.Int(), "testCaseId", p.TestCaseID, "status", p.Status.String())
	}
	return resp, nil
}

// ReportPassFail records a pass or fail under the fixed RunnerName.
func (r *Client) ReportPassFail(testCaseID int, passed bool, testName, message string) (string, error) {
	return r.RecordTestRun(passFailParams(testCaseID, passed, testName, message))
}

func passFailParams(testCaseID int, passed bool, testName, message string) RunParams {
	p := RunParams{
		TestCaseID:     testCaseID,
		Status:         Failed,
		RunnerName:     RunnerName,
		RunnerTestName: testName,
		RunnerMessage:  message,
	}
	if passed {
		p.Status = Passed
	} else {
		p.RunnerStackTrace = FailedStackTrace
	}
	return p
}
