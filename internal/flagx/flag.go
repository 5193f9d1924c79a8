// Package flagx holds small helpers for sharing os.Args between several
// independent flag sets.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args made of the allowed flags and their
// values, preserving order.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
//
// A value is only consumed when the following argument does not start with '-'.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := allowed[name]; keep {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, keep := allowed[arg]; !keep {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// Sources names the optional files configuration is layered from.
type Sources struct {
	// ConfigFile is the JSON config path given by -c / -config.
	ConfigFile string
	// EnvFile is the dotenv path given by -env.
	EnvFile string
}

// ParseSources extracts -c/-config and -env from args (usually os.Args[1:]),
// ignoring every other flag so callers can parse the rest themselves.
func ParseSources(args []string) Sources {
	var s Sources

	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&s.ConfigFile, "config", "", "Path to config file")
	fs.StringVar(&s.ConfigFile, "c", "", "Path to config file (short)")
	fs.StringVar(&s.EnvFile, "env", "", "Path to dotenv file")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config", "-env", "--env"}))

	return s
}
