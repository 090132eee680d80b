// Package config loads repository settings from .grit/config.json with
// GRIT_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	gerrors "grit/internal/errors"

	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const FileName = "config.json"

type Config struct {
	Author struct {
		Name  string `mapstructure:"name"`
		Email string `mapstructure:"email"`
	} `mapstructure:"author"`

	Commit struct {
		// Timezone is a fixed "+hhmm"/"-hhmm" offset. Empty means the
		// offset of the local clock at commit time.
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"commit"`

	Objects struct {
		CompressionLevel int `mapstructure:"compression_level"`
		CacheSize        int `mapstructure:"cache_size"`
	} `mapstructure:"objects"`

	Catalog struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"catalog"`

	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("author.name", "grit")
	v.SetDefault("author.email", "grit@localhost")
	v.SetDefault("commit.timezone", "")
	v.SetDefault("objects.compression_level", zlib.BestSpeed)
	v.SetDefault("objects.cache_size", 4096)
	v.SetDefault("catalog.enabled", true)
	v.SetDefault("log_level", "warn")
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)
	v.SetEnvPrefix("GRIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path if it exists; defaults and environment fill the rest.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := newViper(fs)

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, gerrors.IO("checking config", err)
	}
	if exists {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, gerrors.ValidationError(fmt.Sprintf("reading %s: %v", path, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefault writes a config file holding only the defaults.
func WriteDefault(fs afero.Fs, path string) error {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)
	if err := v.WriteConfigAs(path); err != nil {
		return gerrors.IO("writing config", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Commit.Timezone != "" {
		if _, err := time.Parse("-0700", c.Commit.Timezone); err != nil {
			return gerrors.ValidationError(fmt.Sprintf("commit.timezone %q is not a +hhmm offset", c.Commit.Timezone))
		}
	}
	if l := c.Objects.CompressionLevel; l < zlib.HuffmanOnly || l > zlib.BestCompression {
		return gerrors.ValidationError(fmt.Sprintf("objects.compression_level %d out of range", l))
	}
	return nil
}
