package e2etest

import (
	"fmt"
	"testing"

	"demoblaze-e2e/common/e2e_config"
	"demoblaze-e2e/common/reporter"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// InitTesting initialise testing and setup class name + report filename.
func InitTesting(t *testing.T, classname string, reportname string) {
	RegisterFailHandler(Fail)
	SetupLogging()
	if cfg, err := e2e_config.GetConfig(); err == nil {
		fmt.Printf("Storefront is \"%s\"\n", cfg.SiteURL)
	}
	RunSpecsWithDefaultAndCustomReporters(t, classname, reporter.GetReporters(reportname))
}

// SetupLogging routes the shared logger through ginkgo so output is only
// shown for failing specs.
func SetupLogging() {
	logf.SetLogger(zap.New(zap.UseDevMode(true), zap.WriteTo(GinkgoWriter)))
}
