package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/onechat/internal/flagx"
)

var serverFlags = []string{"-a", "-m", "-f", "-d", "-s", "-t", "-u", "-p", "-b", "-k", "-g", "-e", "-l", "-w", "-i"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":5000")
//	-m string     storage backend: memory, file, s3, badger, postgres
//	-f string     data file for the file backend
//	-d string     PostgreSQL DSN
//	-s string     token HMAC secret key
//	-t int        session validity, minutes (0 = until logout)
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-k string     S3 object key
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string     log level
//	-w duration   message retention window (e.g., "24h")
//	-i duration   retention sweep interval (e.g., "1h")
//
// args are filtered with flagx.FilterArgs first, so -c/-env and flags owned
// by other components are ignored.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddress, "a", config.HTTPAddress, "address and port to run server")
	fs.StringVar(&config.StorageBackend, "m", config.StorageBackend, "storage backend")
	fs.StringVar(&config.DataFile, "f", config.DataFile, "data file")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Key, "k", config.S3Key, "S3 object key")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.DurationVar(&config.RetentionWindow, "w", config.RetentionWindow, "message retention window")
	fs.DurationVar(&config.SweepInterval, "i", config.SweepInterval, "retention sweep interval")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["t"] {
		config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	}
	return nil
}
