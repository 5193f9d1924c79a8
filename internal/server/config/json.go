package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/onechat/internal/timex"
)

// JsonConfig is the on-disk shape of a JSON config file. Durations use
// timex.Duration so both "24h" and integer nanoseconds are accepted.
// Absent fields keep whatever the earlier layers set.
type JsonConfig struct {
	HTTPAddress             string          `json:"http_address"`
	Env                     string          `json:"env"`
	LogLevel                string          `json:"log_level"`
	LogFormat               string          `json:"log_format"`
	StorageBackend          string          `json:"storage_backend"`
	DataFile                string          `json:"data_file"`
	BadgerPath              string          `json:"badger_path"`
	DatabaseDSN             string          `json:"database_dsn"`
	S3Bucket                string          `json:"s3_bucket"`
	S3Key                   string          `json:"s3_key"`
	S3Region                string          `json:"s3_region"`
	S3BaseEndpoint          string          `json:"s3_base_endpoint"`
	S3RootUser              string          `json:"s3_root_user"`
	S3RootPassword          string          `json:"s3_root_password"`
	SecretKey               string          `json:"secret_key"`
	SessionValidityDuration *timex.Duration `json:"session_validity_duration"`
	PasswordHashCost        int             `json:"password_hash_cost"`
	RetentionWindow         *timex.Duration `json:"retention_window"`
	SweepInterval           *timex.Duration `json:"sweep_interval"`
	ShutdownTimeout         *timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays values from the JSON file at path onto config.
// An empty path is a no-op.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.HTTPAddress, c.HTTPAddress)
	setString(&config.Env, c.Env)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DataFile, c.DataFile)
	setString(&config.BadgerPath, c.BadgerPath)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Key, c.S3Key)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.SecretKey, c.SecretKey)

	if c.PasswordHashCost != 0 {
		config.PasswordHashCost = c.PasswordHashCost
	}
	if c.SessionValidityDuration != nil {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.RetentionWindow != nil {
		config.RetentionWindow = c.RetentionWindow.Duration
	}
	if c.SweepInterval != nil {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
