package spira

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"demoblaze-e2e/common/e2e_config"
)

// FailSafe wraps a Client for use from test lifecycle hooks. Every failure is
// logged and turned into an empty result; nothing it does can fail or panic
// the calling test.
type FailSafe struct {
	client   *Client
	log      logr.Logger
}

// NewFailSafe builds a FailSafe for cfg. An unusable configuration is logged
// once here and leaves the FailSafe disabled.
func NewFailSafe(cfg e2e_config.SpiraConfig, opts ...Option) *FailSafe {
	r := newClient(cfg, opts)
	log := r.log
	r, err := r.init()
	if err != nil {
		log.Error(err, "Spira reporting disabled", "config", cfg.Redacted())
		return &FailSafe{log: log}
	}
	return &FailSafe{client: r, log: log}
}

// Enabled reports whether results are actually sent.
func (f *FailSafe) Enabled() bool {
	return f.client != nil
}

// RecordTestRun records a run; ok is false when nothing was recorded.
func (f *FailSafe) RecordTestRun(p RunParams) (resp string, ok bool) {
	if f.client == nil {
		reportCounters.WithLabelValues(outcomeSkipped).Inc()
		return "", false
	}
	defer func() {
		if rec := recover(); rec != nil {
			f.fail(fmt.Errorf("panic: %v", rec), p.TestCaseID)
			resp, ok = "", false
		}
	}()

	resp, err := f.client.RecordTestRun(p)
	if err != nil {
		f.fail(err, p.TestCaseID)
		return "", false
	}
	reportCounters.WithLabelValues(outcomeSent).Inc()
	return resp, true
}

// ReportPassFail is the FailSafe form of Client.ReportPassFail.
func (f *FailSafe) ReportPassFail(testCaseID int, passed bool, testName, message string) (string, bool) {
	return f.RecordTestRun(passFailParams(testCaseID, passed, testName, message))
}

func (f *FailSafe) fail(err error, testCaseID int) {
	reportCounters.WithLabelValues(outcomeFailed).Inc()
	var te *TransportError
	if errors.As(err, &te) && te.Err == nil {
		f.log.Error(err, "Failed to post result to Spira",
			"testCaseId", testCaseID,
			"code", te.StatusCode,
			"response", te.Body)
		return
	}
	f.log.Error(err, "Failed to post result to Spira", "testCaseId", testCaseID)
}
