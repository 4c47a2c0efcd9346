// Package config builds the immutable run configuration. The Config value is
// constructed once at process start (from the environment or a YAML file) and
// passed by pointer into every component; no component reads ambient state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DataSource selects where Jira issues come from.
type DataSource string

const (
	SourceAPI  DataSource = "API"  // live paginated JQL search against Jira Cloud
	SourceFile DataSource = "FILE" // static JSON export on disk
)

// IsValid checks if the data source value is valid.
func (s DataSource) IsValid() bool {
	switch s {
	case SourceAPI, SourceFile:
		return true
	}
	return false
}

// Config holds all settings for one traceability run.
type Config struct {
	// ADO connection settings. The personal access token is always taken
	// from the environment (ADO_PAT), never from a config file on disk.
	ADOServer     string `yaml:"ado_server"`
	ADOCollection string `yaml:"ado_collection"`
	ADOProject    string `yaml:"ado_project"`
	ADOPAT        string `yaml:"-"`

	// Jira connection settings, required only when DataSource is API.
	JiraURL        string `yaml:"jira_url"`
	JiraUsername   string `yaml:"jira_username"`
	JiraAPIToken   string `yaml:"-"`
	JiraProjectKey string `yaml:"jira_project_key"`
	JiraJQL        string `yaml:"jira_jql"`

	// File settings.
	JiraDataFile string     `yaml:"jira_data_file"`
	OutputFile   string     `yaml:"output_file"`
	DataSource   DataSource `yaml:"data_source"`

	// Jira custom field ids. Severity, the recorded ADO id, and the ADO
	// state mirrored into Jira are all custom fields whose ids differ per
	// Jira instance.
	SeverityField string `yaml:"severity_field"`
	ADOIDField    string `yaml:"ado_id_field"`
	ADOStateField string `yaml:"ado_state_field"`

	// Matching settings.
	// FuzzyThreshold is the minimum similarity score (0-100) for a fuzzy
	// candidate to be reported. Default: 70.
	FuzzyThreshold int `yaml:"fuzzy_match_threshold"`
	// FuzzyLimit is the maximum number of candidates reported per unlinked
	// issue. Default: 5.
	FuzzyLimit int `yaml:"fuzzy_match_limit"`
	// ADOScanDays is how far back the candidate pool query looks. Default: 90.
	ADOScanDays int `yaml:"ado_scan_days"`
}

// Default returns a Config with only the tunable defaults set. Connection
// settings have no defaults and must come from the environment or a file.
func Default() Config {
	return Config{
		DataSource:     SourceFile,
		SeverityField:  "customfield_10042",
		ADOIDField:     "customfield_10109",
		ADOStateField:  "customfield_10110",
		FuzzyThreshold: 70,
		FuzzyLimit:     5,
		ADOScanDays:    90,
	}
}

// FromEnv builds a Config from environment variables, loading a .env file
// first if one is present. Missing .env is not an error.
//
// Environment variables:
//   - ADO_SERVER, ADO_COLLECTION, ADO_PROJECT, ADO_PAT (required)
//   - DATA_SOURCE: "API" or "FILE" (default: FILE)
//   - JIRA_URL, JIRA_USERNAME, JIRA_API_TOKEN, JIRA_PROJECT_KEY, JIRA_JQL
//     (required for API mode)
//   - JIRA_INPUT_FILE (required for FILE mode)
//   - OUTPUT_FILE (required)
//   - JIRA_SEVERITY_FIELD, JIRA_ADO_ID_FIELD, JIRA_ADO_STATE_FIELD
//   - FUZZY_MATCH_THRESHOLD, FUZZY_MATCH_LIMIT, ADO_SCAN_DAYS
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	cfg.ADOServer = os.Getenv("ADO_SERVER")
	cfg.ADOCollection = os.Getenv("ADO_COLLECTION")
	cfg.ADOProject = os.Getenv("ADO_PROJECT")
	cfg.ADOPAT = os.Getenv("ADO_PAT")
	cfg.JiraURL = os.Getenv("JIRA_URL")
	cfg.JiraUsername = os.Getenv("JIRA_USERNAME")
	cfg.JiraAPIToken = os.Getenv("JIRA_API_TOKEN")
	cfg.JiraProjectKey = os.Getenv("JIRA_PROJECT_KEY")
	cfg.JiraJQL = os.Getenv("JIRA_JQL")
	cfg.JiraDataFile = os.Getenv("JIRA_INPUT_FILE")
	cfg.OutputFile = os.Getenv("OUTPUT_FILE")

	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource = DataSource(strings.ToUpper(v))
	}
	if v := os.Getenv("JIRA_SEVERITY_FIELD"); v != "" {
		cfg.SeverityField = v
	}
	if v := os.Getenv("JIRA_ADO_ID_FIELD"); v != "" {
		cfg.ADOIDField = v
	}
	if v := os.Getenv("JIRA_ADO_STATE_FIELD"); v != "" {
		cfg.ADOStateField = v
	}

	if err := parseEnvInt("FUZZY_MATCH_THRESHOLD", &cfg.FuzzyThreshold); err != nil {
		return nil, err
	}
	if err := parseEnvInt("FUZZY_MATCH_LIMIT", &cfg.FuzzyLimit); err != nil {
		return nil, err
	}
	if err := parseEnvInt("ADO_SCAN_DAYS", &cfg.ADOScanDays); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return &cfg, nil
}

// LoadFile builds a Config from a YAML file. This is the scheduled-run mode:
// everything except credentials lives in the file, ADO_PAT and JIRA_API_TOKEN
// are resolved from the environment.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configuration file not found: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}

	_ = godotenv.Load()
	cfg.ADOPAT = os.Getenv("ADO_PAT")
	cfg.JiraAPIToken = os.Getenv("JIRA_API_TOKEN")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks if the configuration has valid values. Validation failures
// are configuration errors: the run aborts before any fetching starts.
func (c *Config) Validate() error {
	if c.ADOServer == "" {
		return fmt.Errorf("ADO_SERVER is required")
	}
	if c.ADOCollection == "" {
		return fmt.Errorf("ADO_COLLECTION is required")
	}
	if c.ADOProject == "" {
		return fmt.Errorf("ADO_PROJECT is required")
	}
	if c.ADOPAT == "" {
		return fmt.Errorf("ADO_PAT not found in environment")
	}
	if !c.DataSource.IsValid() {
		return fmt.Errorf("data_source must be API or FILE (got %q)", c.DataSource)
	}
	if c.DataSource == SourceAPI {
		if c.JiraURL == "" {
			return fmt.Errorf("JIRA_URL required when data_source is API")
		}
		if c.JiraUsername == "" {
			return fmt.Errorf("JIRA_USERNAME required when data_source is API")
		}
		if c.JiraAPIToken == "" {
			return fmt.Errorf("JIRA_API_TOKEN required when data_source is API")
		}
	} else if c.JiraDataFile == "" {
		return fmt.Errorf("jira_data_file required when data_source is FILE")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output_file is required")
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return fmt.Errorf("fuzzy_match_threshold must be between 0 and 100 (got %d)", c.FuzzyThreshold)
	}
	if c.FuzzyLimit < 1 {
		return fmt.Errorf("fuzzy_match_limit must be positive (got %d)", c.FuzzyLimit)
	}
	if c.ADOScanDays < 0 {
		return fmt.Errorf("ado_scan_days cannot be negative (got %d)", c.ADOScanDays)
	}
	return nil
}

// ADOAPIBase returns the base URL for ADO REST API calls.
func (c *Config) ADOAPIBase() string {
	return fmt.Sprintf("%s/%s/%s/_apis", c.ADOServer, c.ADOCollection, c.ADOProject)
}

// parseEnvInt parses an int from an environment variable, leaving the
// destination untouched when the variable is unset.
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
