// Package config loads the project build file (libbuild.yaml) together with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/libbuild/internal/dts"
	"github.com/fluxbase-eu/libbuild/internal/observability"
)

// FileName is the build file looked up in the project root
const FileName = "libbuild"

// EnvPrefix prefixes every environment override, e.g. LIBBUILD_OUT_DIR
const EnvPrefix = "LIBBUILD"

// Config represents the project build configuration
type Config struct {
	Manifest     string   `mapstructure:"manifest"`
	Entry        string   `mapstructure:"entry"`
	SrcDir       string   `mapstructure:"src_dir"`
	OutDir       string   `mapstructure:"out_dir"`
	Name         string   `mapstructure:"name"`
	FileName     string   `mapstructure:"file_name"`
	FileNameBase string   `mapstructure:"file_name_base"`
	Formats      []string `mapstructure:"formats"`
	// BundleFormats are built with every dependency except peers inlined
	BundleFormats []string `mapstructure:"bundle_formats"`
	External      []string `mapstructure:"external"`
	Platform      string   `mapstructure:"platform"`
	Target        string   `mapstructure:"target"`
	Sourcemap     bool     `mapstructure:"sourcemap"`
	Minify        bool     `mapstructure:"minify"`
	EmptyOutDir   bool     `mapstructure:"empty_out_dir"`
	Clean         []string `mapstructure:"clean"`

	// Globals names the global each external package is read from by the
	// umd wrapper outside a module system, e.g. react: React. Keys are
	// package names, which npm keeps lower case.
	Globals map[string]string `mapstructure:"globals"`

	Modes     map[string]ModeConfig `mapstructure:"modes"`
	DTS       dts.Options           `mapstructure:"dts"`
	Auxiliary AuxiliaryConfig       `mapstructure:"auxiliary"`
	Watch     WatchConfig           `mapstructure:"watch"`
	Telemetry TelemetryConfig       `mapstructure:"telemetry"`

	Debug bool `mapstructure:"debug"`

	// path of the file the config was read from, empty when defaults only
	source string
}

// WatchConfig tunes `libbuild watch`
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Ignore   []string      `mapstructure:"ignore"`
}

// TelemetryConfig groups the observability settings
type TelemetryConfig struct {
	Tracing observability.TracerConfig `mapstructure:"tracing"`
}

// Load reads the build file from root (or the explicit path) and applies
// LIBBUILD_* environment overrides. A missing build file is not an error.
func Load(root, path string) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(root); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(root)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading build file: %w", err)
		}
		log.Debug().Str("root", root).Msg("No build file found, using defaults and environment variables")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Build file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode build file: %w", err)
	}
	cfg.source = v.ConfigFileUsed()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build file: %w", err)
	}

	return &cfg, nil
}

// Source returns the build file path, empty when none was read
func (c *Config) Source() string {
	return c.source
}

// loadEnvFile loads environment variables from the first .env file found
func loadEnvFile(root string) error {
	locations := []string{
		filepath.Join(root, ".env"),
		filepath.Join(root, ".env.local"),
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("manifest", "package.json")
	v.SetDefault("entry", "src/index.ts")
	v.SetDefault("src_dir", "src")
	v.SetDefault("out_dir", "")
	v.SetDefault("name", "")
	v.SetDefault("file_name", "[name][extname]")
	v.SetDefault("file_name_base", "")
	v.SetDefault("formats", []string{"es", "cjs"})
	v.SetDefault("bundle_formats", []string{})
	v.SetDefault("external", []string{})
	v.SetDefault("platform", "neutral")
	v.SetDefault("target", "es2020")
	v.SetDefault("sourcemap", false)
	v.SetDefault("minify", false)
	v.SetDefault("empty_out_dir", true)
	v.SetDefault("clean", []string{})

	// Declaration defaults
	v.SetDefault("dts.enabled", false)
	v.SetDefault("dts.rollup", false)
	v.SetDefault("dts.out_file", "")
	v.SetDefault("dts.out_dir", "")
	v.SetDefault("dts.tsconfig", "tsconfig.json")
	v.SetDefault("dts.copy", []string{})
	v.SetDefault("dts.bundled_packages", []string{})
	v.SetDefault("dts.timeout", "2m")

	// Auxiliary entry defaults
	v.SetDefault("auxiliary.entries", []string{})
	v.SetDefault("auxiliary.out_dir", "")
	v.SetDefault("auxiliary.file_name", "[dir]/[name][extname]")
	v.SetDefault("auxiliary.formats", []string{"es"})
	v.SetDefault("auxiliary.empty_out_dir", false)
	v.SetDefault("auxiliary.order", OrderAfter)

	// Watch defaults
	v.SetDefault("watch.debounce", "300ms")
	v.SetDefault("watch.ignore", []string{})

	// Tracing defaults
	tracing := observability.DefaultTracerConfig()
	v.SetDefault("telemetry.tracing.enabled", tracing.Enabled)
	v.SetDefault("telemetry.tracing.endpoint", tracing.Endpoint)
	v.SetDefault("telemetry.tracing.service_name", tracing.ServiceName)
	v.SetDefault("telemetry.tracing.environment", tracing.Environment)
	v.SetDefault("telemetry.tracing.sample_rate", tracing.SampleRate)
	v.SetDefault("telemetry.tracing.insecure", tracing.Insecure)

	v.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Entry) == "" {
		return fmt.Errorf("entry cannot be empty")
	}

	if c.Manifest == "" {
		return fmt.Errorf("manifest cannot be empty")
	}

	if len(c.Formats) == 0 && len(c.BundleFormats) == 0 {
		return fmt.Errorf("at least one of formats or bundle_formats is required")
	}

	if err := validateFormats("formats", c.Formats); err != nil {
		return err
	}
	if err := validateFormats("bundle_formats", c.BundleFormats); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.Platform)) {
	case "browser", "node", "neutral":
	default:
		return fmt.Errorf("invalid platform: %s (must be one of: browser, node, neutral)", c.Platform)
	}

	for name, mode := range c.Modes {
		if err := mode.Validate(); err != nil {
			return fmt.Errorf("mode %s: %w", name, err)
		}
		if err := validateFormats("mode "+name+" formats", mode.Formats); err != nil {
			return err
		}
	}

	if err := validateFormats("auxiliary.formats", c.Auxiliary.Formats); err != nil {
		return err
	}

	if err := c.Auxiliary.Validate(); err != nil {
		return fmt.Errorf("auxiliary configuration error: %w", err)
	}

	if c.DTS.Rollup && !c.DTS.Enabled {
		return fmt.Errorf("dts.rollup requires dts.enabled")
	}

	return nil
}

// Mode returns the settings of a named mode. Viper lowercases map keys, so
// the lookup is case-insensitive.
func (c *Config) Mode(name string) (ModeConfig, bool) {
	m, ok := c.Modes[strings.ToLower(name)]
	return m, ok
}

// KnownFormats lists the output formats the bundler driver can produce
var KnownFormats = []string{"es", "cjs", "umd", "iife"}

// NormalizeFormat returns the canonical spelling of a format name. Names are
// case-insensitive and "esm" is accepted for es.
func NormalizeFormat(name string) string {
	f := strings.ToLower(strings.TrimSpace(name))
	if f == "esm" {
		return "es"
	}
	return f
}

// normalize rewrites the case-insensitive settings to their canonical form
func (c *Config) normalize() {
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	c.Target = strings.ToLower(strings.TrimSpace(c.Target))
	c.Formats = normalizeFormats(c.Formats)
	c.BundleFormats = normalizeFormats(c.BundleFormats)
	c.Auxiliary.Formats = normalizeFormats(c.Auxiliary.Formats)
	for name, mode := range c.Modes {
		mode.Formats = normalizeFormats(mode.Formats)
		c.Modes[name] = mode
	}
}

func normalizeFormats(formats []string) []string {
	if formats == nil {
		return nil
	}
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = NormalizeFormat(f)
	}
	return out
}

func validateFormats(field string, formats []string) error {
	for _, f := range formats {
		if !slices.Contains(KnownFormats, NormalizeFormat(f)) {
			return fmt.Errorf("invalid %s entry: %s (must be one of: %s)", field, f, strings.Join(KnownFormats, ", "))
		}
	}
	return nil
}
