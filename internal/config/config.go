// Package config loads the optional ambient defaults file that lets the CLI
// run with a bare `backup <source> <target>` invocation while still allowing
// a site to pin a default target and a standing set of exclude patterns.
// Decoded with github.com/BurntSushi/toml exactly as the teacher's
// internal/backup/config.go decodes its own config.toml.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is the config file looked for at the top of the source
// directory when --config is not given.
const DefaultFileName = ".backup-config.toml"

// Config holds ambient defaults. Every field is optional; the CLI contract
// works with none of them set.
type Config struct {
	Target  string   `toml:"target"`
	Exclude []string `toml:"exclude"`
}

// Load decodes the TOML file at path. A missing file is not an error: it
// yields a zero-value Config, since the config file is entirely optional.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// ResolveTarget returns the target directory to use: the CLI-supplied value
// if non-empty, else the config file's default, else "".
func ResolveTarget(cliTarget string, cfg *Config) string {
	if cliTarget != "" {
		return cliTarget
	}
	if cfg != nil {
		return cfg.Target
	}
	return ""
}

// ResolveExclude appends CLI-supplied exclude patterns to the config file's
// default patterns; CLI patterns never replace config patterns.
func ResolveExclude(cliExclude []string, cfg *Config) []string {
	var result []string
	if cfg != nil {
		result = append(result, cfg.Exclude...)
	}
	result = append(result, cliExclude...)
	return result
}
