// Package config loads the loggate configuration through viper and keeps
// runtime overrides applied over it through the configuration endpoints.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bascanada/loggate/pkg/errs"
	myhttp "github.com/bascanada/loggate/pkg/http"
	"github.com/bascanada/loggate/pkg/ty"
)

// Config is the complete loggate configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log" json:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" json:"server" yaml:"server"`
	Kibana    KibanaConfig    `mapstructure:"kibana" json:"kibana" yaml:"kibana"`
	Periscope PeriscopeConfig `mapstructure:"periscope" json:"periscope" yaml:"periscope"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
	Retry     RetryConfig     `mapstructure:"retry" json:"retry" yaml:"retry"`
	Summary   SummaryConfig   `mapstructure:"summary" json:"summary" yaml:"summary"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// ServerConfig controls the REST listener.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host" yaml:"host"`
	Port int    `mapstructure:"port" json:"port" yaml:"port"`
}

// KibanaConfig contains the Kibana search backend configuration.
type KibanaConfig struct {
	URL          string `mapstructure:"url" json:"url" yaml:"url"`
	Version      string `mapstructure:"version" json:"version" yaml:"version"`
	DefaultIndex string `mapstructure:"defaultIndex" json:"defaultIndex" yaml:"defaultIndex"`
	Timeout      int    `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	VerifyTLS    bool   `mapstructure:"verifyTls" json:"verifyTls" yaml:"verifyTls"`
}

// PeriscopeConfig contains the Periscope SQL backend configuration.
type PeriscopeConfig struct {
	URL           string `mapstructure:"url" json:"url" yaml:"url"`
	Org           string `mapstructure:"org" json:"org" yaml:"org"`
	DefaultStream string `mapstructure:"defaultStream" json:"defaultStream" yaml:"defaultStream"`
	Timeout       int    `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	VerifyTLS     bool   `mapstructure:"verifyTls" json:"verifyTls" yaml:"verifyTls"`
}

// RateLimitConfig contains the per-category token bucket rates, in
// requests per minute.
type RateLimitConfig struct {
	Search int `mapstructure:"search" json:"search" yaml:"search"`
	Auth   int `mapstructure:"auth" json:"auth" yaml:"auth"`
	Config int `mapstructure:"config" json:"config" yaml:"config"`
}

// RetryConfig contains the backoff policy applied to backend calls.
type RetryConfig struct {
	MaxRetries     int     `mapstructure:"maxRetries" json:"maxRetries" yaml:"maxRetries"`
	InitialBackoff int     `mapstructure:"initialBackoff" json:"initialBackoff" yaml:"initialBackoff"`
	MaxBackoff     int     `mapstructure:"maxBackoff" json:"maxBackoff" yaml:"maxBackoff"`
	Multiplier     float64 `mapstructure:"multiplier" json:"multiplier" yaml:"multiplier"`
	Jitter         float64 `mapstructure:"jitter" json:"jitter" yaml:"jitter"`
}

// SummaryConfig configures the external log summarizer command.
type SummaryConfig struct {
	Command string `mapstructure:"command" json:"command" yaml:"command"`
	Timeout int    `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// setDefaults installs the defaults every deployment starts from.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("kibana.version", "7.10.2")
	v.SetDefault("kibana.defaultIndex", "logs-*")
	v.SetDefault("kibana.timeout", 30)
	v.SetDefault("kibana.verifyTls", true)
	v.SetDefault("periscope.org", "default")
	v.SetDefault("periscope.defaultStream", "ziox")
	v.SetDefault("periscope.timeout", 120)
	v.SetDefault("periscope.verifyTls", true)
	v.SetDefault("ratelimit.search", 100)
	v.SetDefault("ratelimit.auth", 10)
	v.SetDefault("ratelimit.config", 20)
	v.SetDefault("retry.maxRetries", 3)
	v.SetDefault("retry.initialBackoff", 1)
	v.SetDefault("retry.maxBackoff", 30)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter", 0.3)
	v.SetDefault("summary.timeout", 60)
}

// Load reads the config file (when present) and the LOGGATE_* environment,
// applies defaults and returns the resulting configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("loggate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("loggate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.loggate")
		v.AddConfigPath("/etc/loggate")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && file != "" {
			return nil, &errs.ConfigurationError{Key: "config", Message: err.Error()}
		}
	}

	// verifyTls can arrive as a string through the environment; "no" and
	// "0" must not decode as true.
	v.Set("kibana.verifyTls", myhttp.CoerceBool(v.GetString("kibana.verifyTls"), true))
	v.Set("periscope.verifyTls", myhttp.CoerceBool(v.GetString("periscope.verifyTls"), true))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &errs.ConfigurationError{Key: "config", Message: err.Error()}
	}

	// Values may carry ${VAR} references, e.g. a URL with an embedded host.
	cfg.Kibana.URL = ty.ResolveString(cfg.Kibana.URL)
	cfg.Periscope.URL = ty.ResolveString(cfg.Periscope.URL)
	cfg.Summary.Command = ty.ResolveString(cfg.Summary.Command)
	return &cfg, nil
}

// KibanaTimeout returns the Kibana request timeout as a duration.
func (c *Config) KibanaTimeout() time.Duration {
	return time.Duration(c.Kibana.Timeout) * time.Second
}

// PeriscopeTimeout returns the Periscope request timeout as a duration.
func (c *Config) PeriscopeTimeout() time.Duration {
	return time.Duration(c.Periscope.Timeout) * time.Second
}

// RetryPolicy converts the retry section into durations.
func (c *Config) RetryDurations() (initial, max time.Duration) {
	return time.Duration(c.Retry.InitialBackoff) * time.Second,
		time.Duration(c.Retry.MaxBackoff) * time.Second
}

// RequireKibanaURL fails with a ConfigurationError when no Kibana URL was
// configured.
func (c *Config) RequireKibanaURL() (string, error) {
	if c.Kibana.URL == "" {
		return "", &errs.ConfigurationError{Key: "kibana.url", Message: "kibana URL is not configured"}
	}
	return c.Kibana.URL, nil
}

// RequirePeriscopeURL fails with a ConfigurationError when no Periscope URL
// was configured.
func (c *Config) RequirePeriscopeURL() (string, error) {
	if c.Periscope.URL == "" {
		return "", &errs.ConfigurationError{Key: "periscope.url", Message: "periscope URL is not configured"}
	}
	return c.Periscope.URL, nil
}
