// =============================================================================
// Tabular Loader - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
// The configuration covers everything that is not per-file mapping: how input
// files are parsed, which warehouse sink receives the records, where the
// statistics go, and the optional result publishers.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings (optional)
//   2. Mapping document (--mapping-file): loaded by the mapping package
//
// Command line flags override values read from the main config.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/tabular-loader/internal/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects human readable ("console") or structured ("json")
	// log output on stderr.
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// StatisticsFile is where the per-file statistics are written after a run.
	// Default: "processing_stats.json"
	StatisticsFile string `yaml:"statistics_file"`

	// ArchiveDir, when set, receives input files that were loaded successfully.
	// Files that fail or are skipped stay where they are.
	ArchiveDir string `yaml:"archive_dir"`

	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	CSV  CSVSettings  `yaml:"csv"`
	XLSX XLSXSettings `yaml:"xlsx"`

	// =========================================================================
	// DESTINATION
	// =========================================================================

	Sink SinkConfig `yaml:"sink"`

	// =========================================================================
	// OPTIONAL PUBLISHERS
	// =========================================================================

	ResultLog ResultLogConfig `yaml:"result_log"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the file, by WHATWG label
	// (e.g. "utf-8", "windows-1252", "iso-8859-1", "utf-16le").
	// A byte order mark always takes precedence.
	// Default: "utf-8"
	Encoding string `yaml:"encoding"`

	// NullValues lists cell texts treated as missing data.
	// Default: types.DefaultNullValues
	NullValues []string `yaml:"null_values"`
}

// XLSXSettings contains settings for reading spreadsheets.
type XLSXSettings struct {
	// Sheet names the worksheet to read. Empty means the first sheet.
	Sheet string `yaml:"sheet"`

	// NullValues lists cell texts treated as missing data.
	// Default: types.DefaultNullValues
	NullValues []string `yaml:"null_values"`
}

// =============================================================================
// SINK SETTINGS
// =============================================================================

// Sink kinds understood by the sink registry.
const (
	SinkBigQuery = "bigquery"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
	SinkXML      = "xml"
)

// SinkConfig selects and configures the warehouse sink.
type SinkConfig struct {
	// Kind is one of "bigquery", "postgres", "sqlite", "xml".
	// Default: "bigquery"
	Kind string `yaml:"kind"`

	// Project, Dataset and Table identify the destination table.
	// Usually supplied on the command line.
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
	Table   string `yaml:"table"`

	// DSN is the connection string for postgres, the database file for
	// sqlite (default "<dataset>.db") or the output directory for xml
	// (default "."). Unused for bigquery.
	DSN string `yaml:"dsn"`

	// CreateTable creates the destination table when it does not exist.
	// Default: true
	CreateTable *bool `yaml:"create_table"`

	// CredentialsFile is a service account key for bigquery. Empty means
	// application default credentials.
	CredentialsFile string `yaml:"credentials_file"`

	// Location is the bigquery job location, e.g. "EU".
	Location string `yaml:"location"`
}

// ShouldCreateTable reports the effective create_table setting.
func (s SinkConfig) ShouldCreateTable() bool {
	return s.CreateTable == nil || *s.CreateTable
}

// =============================================================================
// PUBLISHER SETTINGS
// =============================================================================

// ResultLogConfig publishes the run outcome to Redis.
type ResultLogConfig struct {
	// Type enables the publisher; only "redis" is supported.
	Type     string `yaml:"type"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Name is used in the Redis keys loader:run:<name>[:state].
	// Default: "loader"
	Name string `yaml:"name"`

	// TTL is how long the state key lives.
	// Default: 24h
	TTL time.Duration `yaml:"ttl"`
}

// Enabled reports whether the result log is configured.
func (c ResultLogConfig) Enabled() bool {
	return c.Type != ""
}

// EventsConfig publishes one message per processed file to Kafka.
type EventsConfig struct {
	// Type enables the publisher; only "kafka" is supported.
	Type    string   `yaml:"type"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether file events are configured.
func (c EventsConfig) Enabled() bool {
	return c.Type != ""
}

// MetricsConfig pushes run metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`

	// Job is the Pushgateway job name.
	// Default: "tabular_loader"
	Job string `yaml:"job"`
}

// Enabled reports whether metrics pushing is configured.
func (c MetricsConfig) Enabled() bool {
	return c.PushgatewayURL != ""
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns the configuration used when no config file is given.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults applied.
//   - An error if the file cannot be read, parsed, or fails validation.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.StatisticsFile == "" {
		config.StatisticsFile = "processing_stats.json"
	}

	// CSV settings defaults.
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
	if config.CSV.Encoding == "" {
		config.CSV.Encoding = "utf-8"
	}
	if config.CSV.NullValues == nil {
		config.CSV.NullValues = types.DefaultNullValues
	}
	if config.XLSX.NullValues == nil {
		config.XLSX.NullValues = types.DefaultNullValues
	}

	if config.Sink.Kind == "" {
		config.Sink.Kind = SinkBigQuery
	}

	if config.ResultLog.Name == "" {
		config.ResultLog.Name = "loader"
	}
	if config.ResultLog.TTL == 0 {
		config.ResultLog.TTL = 24 * time.Hour
	}
	if config.Metrics.Job == "" {
		config.Metrics.Job = "tabular_loader"
	}
}

// Validate checks settings that do not depend on the command line.
// The destination table is checked separately by ValidateTarget once flags
// have been merged in.
func Validate(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", config.LogLevel)
	}

	switch config.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format %q must be console or json", config.LogFormat)
	}

	if n := len([]rune(config.CSV.Delimiter)); n != 1 {
		return fmt.Errorf("csv.delimiter must be a single character, got %q", config.CSV.Delimiter)
	}

	switch config.Sink.Kind {
	case SinkBigQuery, SinkPostgres, SinkSQLite, SinkXML:
	default:
		return fmt.Errorf("sink.kind %q must be one of bigquery, postgres, sqlite, xml", config.Sink.Kind)
	}

	if config.ResultLog.Enabled() {
		if config.ResultLog.Type != "redis" {
			return fmt.Errorf("result_log.type %q is not supported", config.ResultLog.Type)
		}
		if config.ResultLog.Address == "" {
			return fmt.Errorf("result_log.address is required")
		}
	}

	if config.Events.Enabled() {
		if config.Events.Type != "kafka" {
			return fmt.Errorf("events.type %q is not supported", config.Events.Type)
		}
		if len(config.Events.Brokers) == 0 || config.Events.Topic == "" {
			return fmt.Errorf("events.brokers and events.topic are required")
		}
	}

	return nil
}

// ValidateTarget checks that the destination table is fully identified.
func ValidateTarget(sink SinkConfig) error {
	if sink.Dataset == "" {
		return fmt.Errorf("dataset id is required")
	}
	if sink.Table == "" {
		return fmt.Errorf("table id is required")
	}
	if sink.Kind == SinkBigQuery && sink.Project == "" {
		return fmt.Errorf("project id is required for the bigquery sink")
	}
	if sink.Kind == SinkPostgres && sink.DSN == "" {
		return fmt.Errorf("dsn is required for the postgres sink")
	}
	return nil
}
