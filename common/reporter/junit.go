package reporter

import (
	"os"
	"path/filepath"

	"demoblaze-e2e/common/e2e_config"
	"demoblaze-e2e/common/spira"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/reporters"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// reportsDirEnv names the reports directory when the configuration cannot be loaded.
const reportsDirEnv = "e2e_reports_dir"

// GetReporters returns the custom reporters for a suite: a JUnit XML file when
// a reports directory is configured, and a Spira reporter. With missing Spira
// credentials the Spira reporter logs once and does nothing.
func GetReporters(name string) []Reporter {
	cfg, err := e2e_config.GetConfig()
	return getReporters(cfg, err, name)
}

// getReporters keeps the JUnit report when the configuration failed to load,
// taking the directory straight from the environment; Spira reporting is off.
func getReporters(cfg e2e_config.E2EConfig, err error, name string) []Reporter {
	reportsDir := cfg.ReportsDir
	if err != nil {
		logf.Log.Info("Configuration unavailable, results will not be reported to Spira", "error", err.Error())
		reportsDir = os.Getenv(reportsDirEnv)
	}

	var result []Reporter
	if reportsDir != "" {
		testGroupPrefix := "e2e."
		xmlFileSpec := filepath.Join(reportsDir, testGroupPrefix+name+"-junit.xml")
		result = append(result, reporters.NewJUnitReporter(xmlFileSpec))
	}
	if err == nil {
		result = append(result, NewSpiraReporter(spira.NewFailSafe(cfg.Spira)))
	}
	return result
}
