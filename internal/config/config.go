// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/typesentry/api/schemas"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "TYPESENTRY"

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Analysis() AnalysisConfig
	JWT() JWTConfig
	Report() ReportConfig
	Database() DatabaseConfig

	// Analysis Setters
	SetAnalysisConcurrency(int)
	SetAnalysisPrescan(bool)
	SetAnalysisRules(enabled, disabled []string)

	// Report Setters
	SetReportFormat(string)
	SetReportOutput(string)
	SetReportFailOn(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	AnalysisCfg AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	JWTCfg      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Analysis() AnalysisConfig { return c.AnalysisCfg }
func (c *Config) JWT() JWTConfig           { return c.JWTCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }

func (c *Config) SetAnalysisConcurrency(n int) { c.AnalysisCfg.Concurrency = n }
func (c *Config) SetAnalysisPrescan(b bool)    { c.AnalysisCfg.PrescanDeclarations = b }
func (c *Config) SetAnalysisRules(enabled, disabled []string) {
	c.AnalysisCfg.EnabledRules = enabled
	c.AnalysisCfg.DisabledRules = disabled
}

func (c *Config) SetReportFormat(f string) { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(o string) { c.ReportCfg.Output = o }
func (c *Config) SetReportFailOn(s string) { c.ReportCfg.FailOn = s }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// AnalysisConfig configures the rule engine and file collection.
type AnalysisConfig struct {
	Concurrency         int      `mapstructure:"concurrency" yaml:"concurrency"`
	PrescanDeclarations bool     `mapstructure:"prescan_declarations" yaml:"prescan_declarations"`
	EnabledRules        []string `mapstructure:"enabled_rules" yaml:"enabled_rules"`
	DisabledRules       []string `mapstructure:"disabled_rules" yaml:"disabled_rules"`
	// Extensions limits collected files; empty means every supported extension.
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
	// Exclude holds directory names skipped while walking.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// JWTConfig defines the weak-secret dictionary used on literal keys.
type JWTConfig struct {
	WeakSecrets    []string `mapstructure:"weak_secrets" yaml:"weak_secrets"`
	DictionaryFile string   `mapstructure:"dictionary_file" yaml:"dictionary_file"`
}

// ReportConfig selects the output writer.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
	// FailOn is a severity; an empty value never fails the scan.
	FailOn string `mapstructure:"fail_on" yaml:"fail_on"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "typesentry")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Analysis --
	v.SetDefault("analysis.concurrency", 8)
	v.SetDefault("analysis.prescan_declarations", false)
	v.SetDefault("analysis.enabled_rules", []string{})
	v.SetDefault("analysis.disabled_rules", []string{})
	v.SetDefault("analysis.extensions", []string{})
	v.SetDefault("analysis.exclude", []string{"node_modules", ".git", "dist", "build", "coverage"})

	// -- JWT --
	v.SetDefault("jwt.weak_secrets", []string{})
	v.SetDefault("jwt.dictionary_file", "")

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "stdout")
	v.SetDefault("report.fail_on", "")

	// -- Database --
	v.SetDefault("database.url", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Environment overrides such as TYPESENTRY_DATABASE_URL.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// database.url is only required when persistence is requested, which the
// scan command checks itself.
func (c *Config) Validate() error {
	if c.AnalysisCfg.Concurrency <= 0 {
		return fmt.Errorf("analysis.concurrency must be a positive integer")
	}
	for _, ext := range c.AnalysisCfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("analysis.extensions entries must start with a dot: %q", ext)
		}
	}
	if err := c.ReportCfg.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the report settings.
func (r *ReportConfig) Validate() error {
	switch r.Format {
	case "sarif", "json", "text":
	default:
		return fmt.Errorf("format must be one of sarif, json, text; got %q", r.Format)
	}
	if r.FailOn != "" {
		if _, err := schemas.ParseSeverity(r.FailOn); err != nil {
			return fmt.Errorf("fail_on: %w", err)
		}
	}
	return nil
}
