package reporter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/onsi/ginkgo/config"
	"github.com/onsi/ginkgo/types"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"demoblaze-e2e/common/spira"
)

// testCaseTag links a spec to a Spira test case, e.g. It("logs in [TC:45]", ...).
var testCaseTag = regexp.MustCompile(`\[TC:(\d+)\]`)

// RunRecorder is satisfied by *spira.FailSafe.
type RunRecorder interface {
	RecordTestRun(p spira.RunParams) (string, bool)
}

// SpiraReporter is a ginkgo reporter that records every completed spec
// carrying a [TC:n] tag as a Spira test run.
type SpiraReporter struct {
	recorder RunRecorder
}

func NewSpiraReporter(recorder RunRecorder) *SpiraReporter {
	return &SpiraReporter{recorder: recorder}
}

func (r *SpiraReporter) SpecSuiteWillBegin(config.GinkgoConfigType, *types.SuiteSummary) {}

func (r *SpiraReporter) BeforeSuiteDidRun(*types.SetupSummary) {}

func (r *SpiraReporter) SpecWillRun(*types.SpecSummary) {}

func (r *SpiraReporter) SpecDidComplete(summary *types.SpecSummary) {
	if !ran(summary) {
		return
	}
	name := specName(summary)
	testCaseID, ok := TestCaseID(name)
	if !ok {
		logf.Log.V(1).Info("No Spira test case tag, not reporting", "spec", name)
		return
	}

	p := spira.RunParams{
		TestCaseID:     testCaseID,
		Status:         SpecStatus(summary.State),
		RunnerName:     spira.RunnerName,
		RunnerTestName: name,
		RunnerMessage:  "All assertions passed",
	}
	if summary.HasFailureState() {
		p.RunnerMessage = summary.Failure.Message
		p.RunnerStackTrace = summary.Failure.Location.FullStackTrace
		if summary.Failure.ForwardedPanic != "" {
			p.RunnerMessage += ": " + summary.Failure.ForwardedPanic
		}
	} else if summary.Skipped() {
		p.RunnerMessage = summary.Failure.Message
	}
	r.recorder.RecordTestRun(p)
}

func (r *SpiraReporter) AfterSuiteDidRun(*types.SetupSummary) {}

func (r *SpiraReporter) SpecSuiteDidEnd(*types.SuiteSummary) {}

// ran is false for specs ginkgo reports without running them: pending specs,
// specs left out by focus or skip filters and specs dropped after a fail-fast
// failure. A spec that called Skip itself carries the skip message.
func ran(summary *types.SpecSummary) bool {
	switch summary.State {
	case types.SpecStatePending, types.SpecStateInvalid:
		return false
	case types.SpecStateSkipped:
		return summary.Failure.Message != ""
	}
	return true
}

// SpecStatus maps a ginkgo spec state to a Spira status.
func SpecStatus(state types.SpecState) spira.Status {
	switch state {
	case types.SpecStatePassed:
		return spira.Passed
	case types.SpecStateFailed, types.SpecStatePanicked, types.SpecStateTimedOut:
		return spira.Failed
	case types.SpecStateSkipped:
		return spira.NotApplicable
	default:
		return spira.NotRun
	}
}

// TestCaseID extracts the id from the first [TC:n] tag in text.
func TestCaseID(text string) (int, bool) {
	m := testCaseTag.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// specName joins the container and spec texts, leaving out the suite root.
func specName(summary *types.SpecSummary) string {
	texts := summary.ComponentTexts
	if len(texts) > 1 {
		texts = texts[1:]
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}
