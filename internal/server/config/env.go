package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const defaultDotEnv = ".env"

// loadDotEnv copies variables from a dotenv file into the process
// environment without overriding ones already set. An empty path falls back
// to ./.env, which may be absent.
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultDotEnv
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// parseEnv overlays fields whose env tag is present in es.
func parseEnv(cfg *Config, es env.EnvSet) error {
	if err := env.Unmarshal(es, cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
