// Package config loads the dacore configuration file.
//
// Example:
//
//	log:
//	  level: debug
//	  format: json
//	capability_profiles: profiles.yaml
//	datasources:
//	  - name: local
//	    type: sqlite
//	    connection: ./data/cities.db
//	  - name: warehouse
//	    type: postgis
//	    connection: postgres://gis@db:5432/maps
//	    params:
//	      sslmode: disable
//
// Every scalar setting can be overridden from the environment with the
// DACORE_ prefix, dots replaced by underscores (DACORE_LOG_LEVEL).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "DACORE"

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Config is the decoded configuration file.
type Config struct {
	Log                LogConfig          `mapstructure:"log"`
	CapabilityProfiles string             `mapstructure:"capability_profiles"`
	DataSources        []DataSourceConfig `mapstructure:"datasources"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DataSourceConfig names one data source.
type DataSourceConfig struct {
	Name       string            `mapstructure:"name"`
	Type       string            `mapstructure:"type"`
	Connection string            `mapstructure:"connection"`
	Params     map[string]string `mapstructure:"params"`
}

// Load reads the YAML file at path. An empty path yields the defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("capability_profiles", "")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg.dir = filepath.Dir(path)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	return cfg, nil
}

// Validate checks required fields and enumerations, reporting every
// problem found.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(validLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of %v", c.Log.Level, validLevels))
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q must be one of %v", c.Log.Format, validFormats))
	}

	seen := map[string]bool{}
	for i, ds := range c.DataSources {
		switch {
		case ds.Name == "":
			errs = append(errs, fmt.Errorf("datasources[%d]: name is required", i))
		case seen[ds.Name]:
			errs = append(errs, fmt.Errorf("datasources[%d]: duplicate name %q", i, ds.Name))
		}
		seen[ds.Name] = true
		if ds.Type == "" {
			errs = append(errs, fmt.Errorf("datasources[%d]: type is required", i))
		}
		if ds.Connection == "" && len(ds.Params) == 0 {
			errs = append(errs, fmt.Errorf("datasources[%d]: connection or params is required", i))
		}
	}
	return errors.Join(errs...)
}

// DataSource returns the data source named name.
func (c *Config) DataSource(name string) (DataSourceConfig, bool) {
	for _, ds := range c.DataSources {
		if ds.Name == name {
			return ds, true
		}
	}
	return DataSourceConfig{}, false
}

// SlogLevel maps Log.Level to a slog level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Profiles loads the capability profile file, if one is configured.
func (c *Config) Profiles() (map[string]capability.DataSourceCapabilities, error) {
	if c.CapabilityProfiles == "" {
		return nil, nil
	}
	path := c.CapabilityProfiles
	if !filepath.IsAbs(path) && c.dir != "" {
		path = filepath.Join(c.dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capability profiles: %w", err)
	}
	defer f.Close()
	return capability.LoadProfiles(f)
}

// ConnectionInfo parses the connection string and overlays Params. A param
// replaces any parsed key that differs from it only in case.
func (d DataSourceConfig) ConnectionInfo() (datasource.ConnectionInfo, error) {
	info := datasource.ConnectionInfo{}
	if d.Connection != "" {
		parsed, err := datasource.ParseConnectionInfo(d.Connection)
		if err != nil {
			return nil, fmt.Errorf("data source %q: %w", d.Name, err)
		}
		info = parsed
	}
	for k, v := range d.Params {
		for existing := range info {
			if strings.EqualFold(existing, k) {
				delete(info, existing)
			}
		}
		info[k] = v
	}
	return info, nil
}
