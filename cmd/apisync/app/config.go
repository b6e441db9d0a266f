package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by apisync.
const EnvPrefix = "APISYNC"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Management service
	Endpoint       string
	APIKey         string
	AuthScheme     string
	AuthHeader     string
	Timeout        time.Duration
	CommandTimeout time.Duration
	RateLimit      float64
	RateBurst      int
	PageLimit      int

	// MetricsFile receives a Prometheus text dump after each command
	MetricsFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables (APISYNC_*)
// 3. .env files
// 4. Config file (configFile, or ~/.apisync.yaml)
// 5. Defaults
//
// A missing default config file is not an error; a missing explicit one is.
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "reading "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".apisync")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("config", "reading config file", err)
			}
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		Endpoint:       v.GetString("endpoint"),
		APIKey:         v.GetString("api_key"),
		AuthScheme:     v.GetString("auth_scheme"),
		AuthHeader:     v.GetString("auth_header"),
		Timeout:        v.GetDuration("timeout"),
		CommandTimeout: v.GetDuration("command_timeout"),
		RateLimit:      v.GetFloat64("rate_limit"),
		RateBurst:      v.GetInt("rate_burst"),
		PageLimit:      v.GetInt("page_limit"),

		MetricsFile: v.GetString("metrics_file"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults registers the default of every key so AutomaticEnv can
// resolve them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("no_color", os.Getenv("NO_COLOR") != "")
	v.SetDefault("format", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("api_key", "")
	v.SetDefault("auth_scheme", "header")
	v.SetDefault("auth_header", "x-api-key")
	v.SetDefault("timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("command_timeout", constants.CommandTimeout)
	v.SetDefault("rate_limit", constants.DefaultRateLimit)
	v.SetDefault("rate_burst", constants.DefaultRateBurst)
	v.SetDefault("page_limit", constants.DefaultPageLimit)
	v.SetDefault("metrics_file", "")
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// Validate checks the numeric settings.
func (c *Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return errors.NewValidationError("timeout", c.Timeout, "must be positive")
	case c.CommandTimeout < 0:
		return errors.NewValidationError("command_timeout", c.CommandTimeout, "cannot be negative")
	case c.RateLimit < 0:
		return errors.NewValidationError("rate_limit", c.RateLimit, "cannot be negative")
	case c.PageLimit <= 0:
		return errors.NewValidationError("page_limit", c.PageLimit, "must be positive")
	}
	return nil
}

// Flags holds the values of the global command-line flags.
type Flags struct {
	ConfigFile  string
	Verbose     bool
	Quiet       bool
	NoColor     bool
	Format      string
	LogLevel    string
	Endpoint    string
	MetricsFile string
}

// UpdateFromFlags updates config values from parsed command flags.
// Only flags the user set override values from the environment or the
// config file.
func (c *Config) UpdateFromFlags(flags *Flags, changed func(name string) bool) {
	if changed("verbose") {
		c.Verbose = flags.Verbose
	}
	if changed("quiet") {
		c.Quiet = flags.Quiet
	}
	if changed("no-color") {
		c.NoColor = flags.NoColor
	}
	if changed("format") {
		c.Format = flags.Format
	}
	if changed("log-level") {
		c.LogLevel = flags.LogLevel
	}
	if changed("endpoint") {
		c.Endpoint = flags.Endpoint
	}
	if changed("metrics-file") {
		c.MetricsFile = flags.MetricsFile
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}
