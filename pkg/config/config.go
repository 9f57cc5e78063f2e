// Package config loads server configuration from a YAML file and
// RESTQ_-prefixed environment variables. The file declares everything the
// serve command needs: listen addresses, connection pools, and the entities
// to generate REST endpoints for.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/restq/restq/pkg/entity"
)

// Config is the full configuration tree.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Postgres []PoolConfig    `mapstructure:"postgres"`
	Entities []entity.Config `mapstructure:"entities"`
}

// ServerConfig configures the HTTP listener and its middleware.
type ServerConfig struct {
	ListenAddr string    `mapstructure:"listenAddr"`
	BaseURL    string    `mapstructure:"baseURL"`
	TLS        TLSConfig `mapstructure:"tls"`
	CORS       bool      `mapstructure:"cors"`

	// BasicAuth maps usernames to passwords. A non-empty map puts every
	// route behind basic auth.
	BasicAuth map[string]string `mapstructure:"basicAuth"`
}

// TLSConfig enables HTTPS. With Enabled set and empty file paths a
// self-signed certificate is generated at startup.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// MetricsConfig configures the Prometheus endpoint, served on its own
// listener so it stays off the public API.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listenAddr"`
}

// PoolConfig declares one named connection pool. Entities select a pool by
// name; the active pool serves entities that do not.
type PoolConfig struct {
	Name       string `mapstructure:"name"`
	ConnString string `mapstructure:"connString"`
	Active     bool   `mapstructure:"active"`
}

// Default returns the configuration used when the file sets nothing.
func Default() Config {
	return Config{
		Server:  ServerConfig{ListenAddr: ":8080"},
		Metrics: MetricsConfig{ListenAddr: ":9100"},
	}
}

// Load reads configuration from cfgFile, or searches for restq.yaml in
// $HOME/.config and the working directory when cfgFile is empty. A missing
// file is fine in the search case; the explicit path must exist.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("restq")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("RESTQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		fieldRuleShorthand,
	)
}

// fieldRuleShorthand lets a field be declared as just its type name,
//
//	fields:
//	  email: string
//
// instead of the full rule object.
func fieldRuleShorthand(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(entity.FieldRule{}) {
		return data, nil
	}
	return entity.FieldRule{Type: data.(string)}, nil
}
