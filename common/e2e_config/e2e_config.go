package e2e_config

import (
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// DefaultPropertiesFile is the properties file picked up from the working directory
// when present.
const DefaultPropertiesFile = "config.properties"

const (
	// ModeRecord submits runs to the test-runs/record endpoint with Basic authentication.
	ModeRecord = "record"
	// ModeLegacy submits runs to the generic /api/v1/test-runs endpoint with a bearer key.
	ModeLegacy = "legacy"
)

const redacted = "<redacted>"

// SpiraConfig holds everything needed to talk to the test management service.
// A SpiraConfig is a plain value: once loaded it is never modified and is
// safe to share between goroutines.
type SpiraConfig struct {
	BaseURL   string `yaml:"base" env:"SPIRA_BASE" env-default:"https://rmit.spiraservice.net"`
	User      string `yaml:"user" env:"SPIRA_USER"`
	APIKey    string `yaml:"apiKey" env:"SPIRA_APIKEY"`
	ProjectID int    `yaml:"projectId" env:"SPIRA_PROJECT_ID"`
	// Mode selects the wire contract, ModeRecord or ModeLegacy.
	Mode string `yaml:"mode" env:"SPIRA_MODE" env-default:"record"`
	// Timeout bounds a single report request, connect through response body.
	Timeout time.Duration `yaml:"timeout" env:"SPIRA_TIMEOUT" env-default:"30s"`
	// Optional defaults applied to runs that do not name a release or test set.
	ReleaseID int `yaml:"releaseId" env:"SPIRA_RELEASE_ID"`
	TestSetID int `yaml:"testSetId" env:"SPIRA_TEST_SET_ID"`
}

// E2EConfig is the application configuration structure
type E2EConfig struct {
	ConfigName string `yaml:"configName" env-default:"default"`
	// SiteURL is the storefront exercised by the acceptance suite.
	SiteURL string `yaml:"siteUrl" env:"e2e_site_url" env-default:"https://www.demoblaze.com"`
	// CredentialsFile holds the username:password pair created by the sign up tests.
	CredentialsFile string `yaml:"credentialsFile" env:"e2e_credentials_file" env-default:"test-credentials.txt"`

	// Run configuration
	ReportsDir string `yaml:"reportsDir" env:"e2e_reports_dir"`

	Spira SpiraConfig `yaml:"spira"`
}

// Sources names the places configuration is read from. Later sources override
// earlier ones: YAML file, then properties file, then the process environment
// (including anything loaded from a .env file).
type Sources struct {
	ConfigFile     string
	PropertiesFile string
	// DotEnv enables loading the nearest .env file, searching upwards from the
	// working directory. Variables already set in the environment win.
	DotEnv bool
}

// LoadConfig builds an E2EConfig from the given sources.
func LoadConfig(src Sources) (E2EConfig, error) {
	var cfg E2EConfig

	if src.ConfigFile != "" {
		data, err := ioutil.ReadFile(src.ConfigFile)
		if err != nil {
			return E2EConfig{}, errors.Wrapf(err, "could not read config file %s", src.ConfigFile)
		}
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return E2EConfig{}, errors.Wrapf(err, "could not parse config file %s", src.ConfigFile)
		}
	}

	if src.PropertiesFile != "" {
		if err := readProperties(src.PropertiesFile, &cfg.Spira); err != nil {
			return E2EConfig{}, err
		}
	}

	if src.DotEnv {
		if err := loadDotEnv(); err != nil {
			return E2EConfig{}, errors.Wrap(err, "could not load .env file")
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return E2EConfig{}, errors.Wrap(err, "could not read environment")
	}
	return cfg, nil
}

// readProperties overlays the spira.* keys of a java style properties file.
func readProperties(path string, spira *SpiraConfig) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "could not read properties file %s", path)
	}

	if s := v.GetString("spira.base"); s != "" {
		spira.BaseURL = s
	}
	if s := v.GetString("spira.user"); s != "" {
		spira.User = s
	}
	if s := v.GetString("spira.api.key"); s != "" {
		spira.APIKey = s
	}
	if s := v.GetString("spira.mode"); s != "" {
		spira.Mode = s
	}
	if s := strings.TrimSpace(v.GetString("spira.project.id")); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			return errors.Wrapf(err, "invalid spira.project.id %q in %s", s, path)
		}
		spira.ProjectID = id
	}
	return nil
}

// loadDotEnv walks up the directory tree from the working directory and loads
// the first .env file found.
func loadDotEnv() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			return godotenv.Load(envFile)
		}
		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			return nil
		}
		dir = parentDir
	}
}

// Validate reports every setting that prevents a report from being sent.
func (c SpiraConfig) Validate() error {
	var problems []string
	if c.BaseURL == "" {
		problems = append(problems, "base URL is not set")
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("base URL %q is not an absolute URL", c.BaseURL))
	}
	switch c.Mode {
	case ModeRecord:
		if c.User == "" {
			problems = append(problems, "user is not set (SPIRA_USER)")
		}
	case ModeLegacy:
	default:
		problems = append(problems, fmt.Sprintf("unknown mode %q", c.Mode))
	}
	if c.APIKey == "" {
		problems = append(problems, "API key is not set (SPIRA_APIKEY)")
	}
	if c.ProjectID <= 0 {
		problems = append(problems, "project id is not set")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, ", "))
	}
	return nil
}

// Redacted returns a copy that is safe to print: the API key is replaced and
// only the first character of the user name is kept.
func (c SpiraConfig) Redacted() SpiraConfig {
	if c.APIKey != "" {
		c.APIKey = redacted
	}
	if c.User != "" {
		c.User = string([]rune(c.User)[:1]) + "***"
	}
	return c
}

// Dump renders the configuration as YAML with credentials redacted.
func (c E2EConfig) Dump() string {
	c.Spira = c.Spira.Redacted()
	cfgBytes, _ := yaml.Marshal(c)
	return string(cfgBytes)
}

var once sync.Once
var e2eConfig E2EConfig
var e2eConfigErr error

// GetConfig loads the process wide configuration on first use.
// The configuration file is named by the environment variable e2e_config_file,
// config.properties is used when present in the working directory.
// This is called early from suite setup, so errors are returned rather than
// logged; callers decide whether to carry on without reporting.
func GetConfig() (E2EConfig, error) {
	once.Do(func() {
		src := Sources{
			ConfigFile: os.Getenv("e2e_config_file"),
			DotEnv:     true,
		}
		if _, err := os.Stat(DefaultPropertiesFile); err == nil {
			src.PropertiesFile = DefaultPropertiesFile
		}
		e2eConfig, e2eConfigErr = LoadConfig(src)
		if e2eConfigErr == nil {
			fmt.Printf("%s\n", e2eConfig.Dump())
		}
	})
	return e2eConfig, e2eConfigErr
}
