// Package config handles runtime configuration for the watcher: an optional
// YAML file with environment variable substitution, environment variable
// fallbacks, defaults, and startup validation.
//
// Precedence, highest first: CLI flags (applied by the cmd layer), config
// file, environment, defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/skitools/parkwatch/internal/notify"
)

// Config is the notifier and runtime configuration. It is immutable after
// startup and owned by the controller for the run's duration.
type Config struct {
	Ntfy        NtfyConfig    `yaml:"ntfy"`
	SMTP        SMTPConfig    `yaml:"smtp"`
	SMS         SMSConfig     `yaml:"sms"`
	Logging     LoggingConfig `yaml:"logging"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// NtfyConfig defines ntfy push settings.
type NtfyConfig struct {
	Server string `yaml:"server"`
	Topic  string `yaml:"topic"`
}

// SMTPConfig defines the SMTP connection used by the email and sms channels.
type SMTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// SMSConfig defines the carrier gateway target for the sms channel.
type SMSConfig struct {
	Phone   string `yaml:"phone"`
	Carrier string `yaml:"carrier"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load builds the configuration from an optional YAML file (path may be
// empty), environment variables, and defaults. `${VAR}` references inside
// the file are expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnv fills fields the file left empty from the environment.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.AutomaticEnv()

	setIfEmpty(&cfg.Ntfy.Topic, v.GetString("NTFY_TOPIC"))
	setIfEmpty(&cfg.Ntfy.Server, v.GetString("NTFY_SERVER"))

	setIfEmpty(&cfg.SMTP.Host, v.GetString("SMTP_HOST"))
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = v.GetInt("SMTP_PORT")
	}
	setIfEmpty(&cfg.SMTP.User, v.GetString("SMTP_USER"))
	setIfEmpty(&cfg.SMTP.Pass, v.GetString("SMTP_PASS"))
	setIfEmpty(&cfg.SMTP.From, v.GetString("SMTP_FROM"))
	setIfEmpty(&cfg.SMTP.To, v.GetString("SMTP_TO"))

	setIfEmpty(&cfg.SMS.Phone, v.GetString("SMS_PHONE"))
	setIfEmpty(&cfg.SMS.Carrier, v.GetString("SMS_CARRIER"))
}

func setIfEmpty(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Ntfy.Server == "" {
		cfg.Ntfy.Server = notify.DefaultNtfyServer
	}
	if cfg.SMTP.Host == "" {
		cfg.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// ValidateChannels checks that every requested notification channel has the
// credentials it needs. A missing credential is a fatal startup error, not a
// per-cycle failure.
func (c *Config) ValidateChannels(channels []notify.Channel) error {
	var errs []error

	for _, ch := range channels {
		switch ch {
		case notify.ChannelNtfy:
			if c.Ntfy.Topic == "" {
				errs = append(errs, fmt.Errorf(
					"ntfy channel requires a topic (--ntfy-topic or NTFY_TOPIC)"))
			}
		case notify.ChannelEmail:
			errs = append(errs, c.validateSMTP("email")...)
			if c.SMTP.To == "" {
				errs = append(errs, fmt.Errorf("email channel requires SMTP_TO"))
			}
		case notify.ChannelSMS:
			errs = append(errs, c.validateSMTP("sms")...)
			if c.SMS.Phone == "" {
				errs = append(errs, fmt.Errorf("sms channel requires SMS_PHONE"))
			}
			if c.SMS.Carrier == "" {
				errs = append(errs, fmt.Errorf("sms channel requires SMS_CARRIER"))
			} else if _, err := notify.SMSAddress("0", c.SMS.Carrier); err != nil {
				errs = append(errs, err)
			}
		case notify.ChannelDesktop:
			// No configuration needed.
		}
	}

	return errors.Join(errs...)
}

func (c *Config) validateSMTP(channel string) []error {
	var errs []error
	if c.SMTP.User == "" {
		errs = append(errs, fmt.Errorf("%s channel requires SMTP_USER", channel))
	}
	if c.SMTP.Pass == "" {
		errs = append(errs, fmt.Errorf("%s channel requires SMTP_PASS", channel))
	}
	if c.SMTP.From == "" {
		errs = append(errs, fmt.Errorf("%s channel requires SMTP_FROM", channel))
	}
	return errs
}
