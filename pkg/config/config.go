// Package config loads gfproxy, gfcache, and gfload configuration from
// CLI flags, environment variables, a YAML file, and defaults, in that
// order of precedence, following the layered approach of dittofs's
// original controlplane config package.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ProxyConfig configures gfproxy: the GETFILE-facing worker pool, its
// shared-memory link to the cache daemon, and its ambient stack.
type ProxyConfig struct {
	Port        int    `mapstructure:"port" yaml:"port" validate:"required,gt=0,lt=65536"`
	Workers     int    `mapstructure:"workers" yaml:"workers" validate:"required,gt=0"`
	Socket      string `mapstructure:"socket" yaml:"socket" validate:"required"`
	CacheSocket string `mapstructure:"cache_socket" yaml:"cache_socket" validate:"required"`
	SegmentDir  string `mapstructure:"segment_dir" yaml:"segment_dir" validate:"required"`
	SegmentSize uint32 `mapstructure:"segment_size" yaml:"segment_size" validate:"required,gt=0"`
	SegmentPool int    `mapstructure:"segment_pool" yaml:"segment_pool" validate:"required,gt=0"`
	OriginURL   string `mapstructure:"origin_url" yaml:"origin_url" validate:"required"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Admin   AdminConfig   `mapstructure:"admin" yaml:"admin"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
}

// CacheConfig configures gfcache: the blob-store-backed daemon that
// answers the proxy's segment-exchange requests.
type CacheConfig struct {
	Socket      string `mapstructure:"socket" yaml:"socket" validate:"required"`
	ProxySocket string `mapstructure:"proxy_socket" yaml:"proxy_socket" validate:"required"`
	SegmentDir  string `mapstructure:"segment_dir" yaml:"segment_dir" validate:"required"`
	SegmentSize uint32 `mapstructure:"segment_size" yaml:"segment_size" validate:"required,gt=0"`
	Workers     int    `mapstructure:"workers" yaml:"workers" validate:"required,gt=0"`
	BlobRoot    string `mapstructure:"blob_root" yaml:"blob_root" validate:"required"`
	IndexPath   string `mapstructure:"index_path" yaml:"index_path"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Admin   AdminConfig   `mapstructure:"admin" yaml:"admin"`
}

// LoadConfig configures gfload: the request-generation load tool.
type LoadConfig struct {
	ServerHost   string `mapstructure:"server" yaml:"server" validate:"required"`
	ServerPort   int    `mapstructure:"port" yaml:"port" validate:"required,gt=0,lt=65536"`
	Workers      int    `mapstructure:"workers" yaml:"workers" validate:"required,gt=0"`
	TargetRate   int    `mapstructure:"rate" yaml:"rate"`
	NumRequest   int    `mapstructure:"num_requests" yaml:"num_requests" validate:"required,gt=0"`
	WorkloadPath string `mapstructure:"workload" yaml:"workload" validate:"required"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig controls structured log output, mirroring the levels
// and formats internal/logger supports.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// AdminConfig controls the admin HTTP surface (/healthz, /metrics,
// /debug/segments), served on a port distinct from the GETFILE port.
type AdminConfig struct {
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// JournalConfig controls the SQLite-backed access journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn" validate:"required_if=Enabled true"`
}

var validate = validator.New()

// bind wires viper's precedence chain (flags > env > file > defaults)
// for one binary's config. prefix is the environment variable prefix
// (e.g. "GFPROXY"); flags must already be registered on fs.
func bind(fs *pflag.FlagSet, prefix, configFile string, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read %s: %w", configFile, err)
			}
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}
	return v, nil
}

// LoadProxyConfig resolves a ProxyConfig from fs, env (GFPROXY_*), and
// configFile (may be empty), applying defaults and validating the result.
func LoadProxyConfig(fs *pflag.FlagSet, configFile string) (ProxyConfig, error) {
	v, err := bind(fs, "GFPROXY", configFile, proxyDefaults())
	if err != nil {
		return ProxyConfig{}, err
	}
	var cfg ProxyConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ProxyConfig{}, fmt.Errorf("config: unmarshal proxy config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return ProxyConfig{}, fmt.Errorf("config: invalid proxy config: %w", err)
	}
	return cfg, nil
}

// LoadCacheConfig resolves a CacheConfig from fs, env (GFCACHE_*), and
// configFile (may be empty), applying defaults and validating the result.
func LoadCacheConfig(fs *pflag.FlagSet, configFile string) (CacheConfig, error) {
	v, err := bind(fs, "GFCACHE", configFile, cacheDefaults())
	if err != nil {
		return CacheConfig{}, err
	}
	var cfg CacheConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return CacheConfig{}, fmt.Errorf("config: unmarshal cache config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return CacheConfig{}, fmt.Errorf("config: invalid cache config: %w", err)
	}
	return cfg, nil
}

// LoadLoadConfig resolves a LoadConfig from fs and env (GFLOAD_*). The
// load generator has no config file; its inputs are always flags.
func LoadLoadConfig(fs *pflag.FlagSet) (LoadConfig, error) {
	v, err := bind(fs, "GFLOAD", "", loadDefaults())
	if err != nil {
		return LoadConfig{}, err
	}
	var cfg LoadConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return LoadConfig{}, fmt.Errorf("config: unmarshal load config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return LoadConfig{}, fmt.Errorf("config: invalid load config: %w", err)
	}
	return cfg, nil
}

