package reporter

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/reporters"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"demoblaze-e2e/common/e2e_config"
	"demoblaze-e2e/common/spira"
)

func spiraConfig() e2e_config.SpiraConfig {
	return e2e_config.SpiraConfig{
		BaseURL:   "https://spira.test",
		User:      "u",
		APIKey:    "k",
		ProjectID: 1,
		Mode:      e2e_config.ModeRecord,
		Timeout:   time.Second,
	}
}

func spiraRecorder(list []Reporter) *spira.FailSafe {
	for _, r := range list {
		if sr, ok := r.(*SpiraReporter); ok {
			return sr.recorder.(*spira.FailSafe)
		}
	}
	return nil
}

var _ = Describe("GetReporters", func() {

	var (
		savedDir string
		hadDir   bool
	)

	BeforeEach(func() {
		savedDir, hadDir = os.LookupEnv(reportsDirEnv)
		os.Unsetenv(reportsDirEnv)
	})

	AfterEach(func() {
		os.Unsetenv(reportsDirEnv)
		if hadDir {
			os.Setenv(reportsDirEnv, savedDir)
		}
	})

	It("should return an enabled Spira reporter and no JUnit file by default", func() {
		result := getReporters(e2e_config.E2EConfig{Spira: spiraConfig()}, nil, "login")
		Expect(result).To(HaveLen(1))
		fs := spiraRecorder(result)
		Expect(fs).ToNot(BeNil())
		Expect(fs.Enabled()).To(BeTrue())
	})

	It("should add a JUnit reporter for the reports directory", func() {
		cfg := e2e_config.E2EConfig{ReportsDir: "/tmp/reports", Spira: spiraConfig()}
		result := getReporters(cfg, nil, "login")
		Expect(result).To(HaveLen(2))
		Expect(result[0]).To(BeAssignableToTypeOf(&reporters.JUnitReporter{}))
		Expect(spiraRecorder(result).Enabled()).To(BeTrue())
	})

	It("should keep a disabled Spira reporter without credentials", func() {
		cfg := spiraConfig()
		cfg.APIKey = ""
		result := getReporters(e2e_config.E2EConfig{Spira: cfg}, nil, "login")
		fs := spiraRecorder(result)
		Expect(fs).ToNot(BeNil())
		Expect(fs.Enabled()).To(BeFalse())
	})

	It("should drop Spira but keep JUnit when the configuration fails", func() {
		Expect(getReporters(e2e_config.E2EConfig{}, errors.New("bad config"), "login")).To(BeEmpty())

		os.Setenv(reportsDirEnv, "/tmp/reports")
		result := getReporters(e2e_config.E2EConfig{}, errors.New("bad config"), "login")
		Expect(result).To(HaveLen(1))
		Expect(result[0]).To(BeAssignableToTypeOf(&reporters.JUnitReporter{}))
		Expect(spiraRecorder(result)).To(BeNil())
	})

	It("should disable Spira reporting for an unreadable properties file", func() {
		dir, err := ioutil.TempDir("", "reporters")
		Expect(err).ToNot(HaveOccurred())
		defer os.RemoveAll(dir)
		properties := filepath.Join(dir, "config.properties")
		Expect(ioutil.WriteFile(properties, []byte("spira.project.id=abc\n"), 0644)).To(Succeed())

		cfg, err := e2e_config.LoadConfig(e2e_config.Sources{PropertiesFile: properties})
		Expect(err).To(HaveOccurred())
		Expect(spiraRecorder(getReporters(cfg, err, "login"))).To(BeNil())
	})
})
