// Package config loads runtime configuration for the onechat CLI.
//
// Sources, later wins: built-in defaults, an optional JSON file selected
// with -c/-config, then command-line flags.
//
//	-a string     base URL of the onechat server
//	-t duration   per-request timeout
//
// JSON durations accept "5s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "request_timeout": "5s"
//	}
package config

import (
	"time"

	"github.com/dmitrijs2005/onechat/internal/flagx"
)

type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000"
	c.RequestTimeout = 5 * time.Second
}

// LoadConfig applies defaults, then JSON, then flags from args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, flagx.ParseSources(args).ConfigFile); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
