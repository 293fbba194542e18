package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is looked up in the working directory when no explicit
// config file is given.
const DefaultFile = "sandpaper.yaml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: SANDPAPER_METRICS__PUSHGATEWAY_URL sets
// metrics.pushgateway_url.
const EnvPrefix = "SANDPAPER_"

// flagKeys maps flag names to config keys. Only these flags feed the
// configuration; command-specific flags stay with their command.
var flagKeys = map[string]string{
	"log-level":       "log_level",
	"log-format":      "log_format",
	"line-terminator": "line_terminator",
	"jobs":            "jobs",
	"metrics-backend": "metrics.backend",
	"pushgateway-url": "metrics.pushgateway_url",
	"datadog-addr":    "metrics.datadog_addr",
	"metrics-job":     "metrics.job",
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"log_level":       "info",
		"log_format":      "text",
		"line_terminator": "os",
		"jobs":            1,
		"metrics.backend": "none",
		"metrics.job":     "sandpaper",
	}
}

// Load builds the configuration. Precedence (highest to lowest): explicitly
// set flags > environment > config file > defaults. A missing cfgFile is an
// error; a missing DefaultFile is not.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("load defaults: %w", err)
	}

	used := cfgFile
	if used == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			used = DefaultFile
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("stat %s: %w", DefaultFile, err)
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if cfg.Reader == nil {
		cfg.Reader = Options{}
	}
	return &cfg, used, nil
}
