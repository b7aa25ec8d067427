package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultAddress = "localhost:6600"

type Config struct {
	Addresses      []string
	Timeout        time.Duration
	MaxSize        int
	LogLevel       string
	MetricsAddress string
}

func (c Config) String() string {
	return fmt.Sprintf("[CONFIG: Servers: %s | Timeout: %s | MaxSize: %d | LogLevel: %s]",
		strings.Join(c.Addresses, ","), c.Timeout, c.MaxSize, c.LogLevel)
}

// loadConfig reads, by increasing priority: defaults, the config file,
// MPD_* environment variables (a .env file is loaded first) and flags.
func loadConfig(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("mpdc", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "config file (yaml, toml or json)")
	fs.StringSliceP("server", "s", nil, "server address host:port, repeatable")
	fs.Duration("timeout", 0, "per-command timeout")
	fs.Int("max-size", 0, "maximum sessions per server")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("metrics-address", "", "serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("mpd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = godotenv.Load(".env")
	v.AutomaticEnv()

	v.SetDefault("server.addresses", []string{defaultAddress})
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("client.max_size", 4)
	v.SetDefault("log.level", "warn")
	v.SetDefault("metrics.address", "")

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", *configFile)
		}
	}

	for key, flag := range map[string]string{
		"server.addresses": "server",
		"client.timeout":   "timeout",
		"client.max_size":  "max-size",
		"log.level":        "log-level",
		"metrics.address":  "metrics-address",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, errors.Wrapf(err, "failed to bind flag %s", flag)
		}
	}

	config := &Config{
		Addresses:      splitList(v.GetStringSlice("server.addresses")),
		Timeout:        v.GetDuration("client.timeout"),
		MaxSize:        v.GetInt("client.max_size"),
		LogLevel:       v.GetString("log.level"),
		MetricsAddress: v.GetString("metrics.address"),
	}

	if len(config.Addresses) == 0 {
		return nil, errors.New("no server address configured")
	}
	if config.MaxSize <= 0 {
		return nil, errors.Errorf("invalid client.max_size %d", config.MaxSize)
	}

	return config, nil
}

// splitList accepts both repeated values and comma separated lists, as
// environment variables only carry the latter.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
