package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-m", "-w"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"separate values", []string{"-a", ":5000", "-m", "badger"}, serverFlags, []string{"-a", ":5000", "-m", "badger"}},
		{"equals form", []string{"-a=:5000", "-x=1"}, serverFlags, []string{"-a=:5000"}},
		{"value may start with a dash in equals form", []string{"-w=-1h"}, serverFlags, []string{"-w=-1h"}},
		{"client flags dropped", []string{"-c", "cfg.json", "-env", ".env", "-a", ":1"}, serverFlags, []string{"-a", ":1"}},
		{"positional args dropped", []string{"login", "-m", "memory", "extra"}, serverFlags, []string{"-m", "memory"}},
		{"trailing flag without value", []string{"-m"}, serverFlags, []string{"-m"}},
		{"next flag is not consumed as value", []string{"-m", "-a", ":1"}, serverFlags, []string{"-m", "-a", ":1"}},
		{"repeats kept in order", []string{"-m", "file", "-m", "s3"}, serverFlags, []string{"-m", "file", "-m", "s3"}},
		{"nothing allowed", []string{"-a", ":1"}, nil, []string{}},
		{"no args", nil, serverFlags, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestParseSources(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Sources
	}{
		{"short -c with value", []string{"-c", "/path/short.json"}, Sources{ConfigFile: "/path/short.json"}},
		{"long -config with value", []string{"-config", "/path/long.json"}, Sources{ConfigFile: "/path/long.json"}},
		{"equals form", []string{"--config=/p.json", "-env=.env.local"}, Sources{ConfigFile: "/p.json", EnvFile: ".env.local"}},
		{"env only, other flags ignored", []string{"-a", ":9000", "-env", "prod.env", "-b", "badger"}, Sources{EnvFile: "prod.env"}},
		{"nothing", []string{"-x", "1"}, Sources{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSources(tt.args))
		})
	}
}
