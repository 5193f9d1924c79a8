package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/onechat/internal/flagx"
)

func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ServerURL, "a", config.ServerURL, "onechat server URL")
	fs.DurationVar(&config.RequestTimeout, "t", config.RequestTimeout, "request timeout")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-t"})); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
