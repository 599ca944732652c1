package spira

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	labelOutcome = "outcome"

	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

var reportCounters = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "spira_reports_total",
	Help: "The number of test results handed to the Spira reporter, by outcome",
}, []string{labelOutcome})

func init() {
	metrics.Registry.MustRegister(reportCounters)
}
