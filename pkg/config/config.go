package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/openvpn"
)

// EnvPrefix prefixes every environment override, e.g. VPNWATCH_OPENVPN_HOST
const EnvPrefix = "VPNWATCH"

const redacted = "<redacted>"

// Config holds the application configuration
type Config struct {
	OpenVPN  OpenVPN  `mapstructure:"openvpn" yaml:"openvpn"`
	Monitor  Monitor  `mapstructure:"monitor" yaml:"monitor"`
	Pushover Pushover `mapstructure:"pushover" yaml:"pushover"`
	Log      Log      `mapstructure:"log" yaml:"log"`
	Metrics  Metrics  `mapstructure:"metrics" yaml:"metrics"`
}

// OpenVPN locates the management interface
type OpenVPN struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	MalformedPolicy string        `mapstructure:"malformed_policy" yaml:"malformed_policy"`
}

// Monitor controls polling and escalation
type Monitor struct {
	Interval         time.Duration `mapstructure:"interval" yaml:"interval"`
	FailureThreshold int           `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	RealertEvery     int           `mapstructure:"realert_every" yaml:"realert_every"`
}

// Pushover holds notification credentials
type Pushover struct {
	Token         string        `mapstructure:"token" yaml:"token"`
	UserKey       string        `mapstructure:"user_key" yaml:"user_key"`
	APIURL        string        `mapstructure:"api_url" yaml:"api_url"`
	Title         string        `mapstructure:"title" yaml:"title"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RatePerMinute int           `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
}

// Log controls logger output
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Metrics controls the HTTP endpoint; an empty Addr disables it
type Metrics struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// FlagKeys maps command-line flag names to configuration keys
var FlagKeys = map[string]string{
	"server":           "openvpn.host",
	"port":             "openvpn.port",
	"dial-timeout":     "openvpn.dial_timeout",
	"read-timeout":     "openvpn.read_timeout",
	"malformed-policy": "openvpn.malformed_policy",
	"interval":         "monitor.interval",
	"threshold":        "monitor.failure_threshold",
	"realert-every":    "monitor.realert_every",
	"token":            "pushover.token",
	"user-key":         "pushover.user_key",
	"pushover-url":     "pushover.api_url",
	"log-level":        "log.level",
	"log-json":         "log.json",
	"metrics-addr":     "metrics.addr",
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("openvpn.host", "localhost")
	v.SetDefault("openvpn.port", 5555)
	v.SetDefault("openvpn.dial_timeout", "5s")
	v.SetDefault("openvpn.read_timeout", "10s")
	v.SetDefault("openvpn.malformed_policy", string(openvpn.PolicyAbort))
	v.SetDefault("monitor.interval", "5s")
	v.SetDefault("monitor.failure_threshold", 3)
	v.SetDefault("monitor.realert_every", 0)
	v.SetDefault("pushover.token", "")
	v.SetDefault("pushover.user_key", "")
	v.SetDefault("pushover.api_url", "https://api.pushover.net/1/messages.json")
	v.SetDefault("pushover.title", "")
	v.SetDefault("pushover.timeout", "10s")
	v.SetDefault("pushover.rate_per_minute", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("metrics.addr", "")
}

// New returns a viper instance with defaults and environment overrides set up
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// BindFlags binds every known flag present in flags to its key
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the configuration file (the given path, or vpnwatch.yaml in
// the usual locations) and decodes the merged configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("vpnwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "vpnwatch"))
		}
		v.AddConfigPath("/etc/vpnwatch/")
	}

	logger := log.WithComponent("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		logger.Debug().Msg("No config file found, using defaults, environment and flags")
	} else {
		logger.Debug().Str("file", v.ConfigFileUsed()).Msg("Using config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every value that does not depend on the command being run
func (c *Config) Validate() error {
	if c.OpenVPN.Host == "" {
		return errors.New("openvpn.host must not be empty")
	}
	if c.OpenVPN.Port < 1 || c.OpenVPN.Port > 65535 {
		return fmt.Errorf("openvpn.port must be between 1 and 65535, got %d", c.OpenVPN.Port)
	}
	if c.OpenVPN.DialTimeout <= 0 {
		return fmt.Errorf("openvpn.dial_timeout must be positive, got %s", c.OpenVPN.DialTimeout)
	}
	if c.OpenVPN.ReadTimeout <= 0 {
		return fmt.Errorf("openvpn.read_timeout must be positive, got %s", c.OpenVPN.ReadTimeout)
	}
	if _, err := openvpn.ParsePolicy(c.OpenVPN.MalformedPolicy); err != nil {
		return fmt.Errorf("openvpn.malformed_policy: %w", err)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.FailureThreshold < 1 {
		return fmt.Errorf("monitor.failure_threshold must be at least 1, got %d", c.Monitor.FailureThreshold)
	}
	if c.Monitor.RealertEvery < 0 {
		return fmt.Errorf("monitor.realert_every must not be negative, got %d", c.Monitor.RealertEvery)
	}
	if c.Pushover.RatePerMinute < 0 {
		return fmt.Errorf("pushover.rate_per_minute must not be negative, got %d", c.Pushover.RatePerMinute)
	}
	if c.Pushover.APIURL != "" {
		if _, err := url.ParseRequestURI(c.Pushover.APIURL); err != nil {
			return fmt.Errorf("pushover.api_url: %w", err)
		}
	}
	switch log.Level(c.Log.Level) {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	return nil
}

// RequirePushover checks the credentials needed to deliver notifications
func (c *Config) RequirePushover() error {
	var missing []string
	if c.Pushover.Token == "" {
		missing = append(missing, "pushover.token (--token)")
	}
	if c.Pushover.UserKey == "" {
		missing = append(missing, "pushover.user_key (--user-key)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Address returns the management interface's host:port
func (c *Config) Address() string {
	return net.JoinHostPort(c.OpenVPN.Host, strconv.Itoa(c.OpenVPN.Port))
}

// Redacted returns a copy with credentials masked
func (c Config) Redacted() Config {
	if c.Pushover.Token != "" {
		c.Pushover.Token = redacted
	}
	if c.Pushover.UserKey != "" {
		c.Pushover.UserKey = redacted
	}
	return c
}

// YAML renders the redacted configuration
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}
