package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type viperConfig struct {
	configPath   *string
	noConfigFile bool
}

// ViperOption is a functional option for configuring the Viper module.
type ViperOption func(*viperConfig)

// WithConfigPath sets a direct path to the configuration file.
func WithConfigPath(path string) ViperOption {
	return func(cfg *viperConfig) {
		cfg.configPath = &path
	}
}

// WithoutConfigFile disables loading of any config file.
// Viper stays available for DI and still reads environment variables.
func WithoutConfigFile() ViperOption {
	return func(cfg *viperConfig) {
		cfg.noConfigFile = true
	}
}

// FilePath is the path to a configuration file. Empty means no file.
type FilePath string

// NewViperModule provides *viper.Viper.
// The config file is resolved from WithConfigPath, then AppConfig.ConfigFile.
// A missing file resolved from AppConfig is tolerated; an explicit path must exist.
func NewViperModule(opts ...ViperOption) fx.Option {
	cfg := &viperConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return fx.Module("viper",
		fx.Provide(
			func(app AppConfig) resolvedPath {
				return resolveConfigPath(cfg, app)
			},
			newViper,
		),
		fx.Invoke(logViperConfig),
	)
}

type resolvedPath struct {
	path     FilePath
	explicit bool
}

func resolveConfigPath(cfg *viperConfig, app AppConfig) resolvedPath {
	if cfg.noConfigFile {
		return resolvedPath{}
	}
	if cfg.configPath != nil {
		return resolvedPath{path: FilePath(*cfg.configPath), explicit: true}
	}
	if configFile := os.Getenv(envConfigFile); configFile != "" {
		return resolvedPath{path: FilePath(configFile), explicit: true}
	}
	return resolvedPath{path: FilePath(app.ConfigFile)}
}

func logViperConfig(log *zap.Logger, v *viper.Viper) {
	log.Info("configuration loaded",
		zap.String("configFile", v.ConfigFileUsed()),
		zap.Int("settingsCount", len(v.AllSettings())),
	)
}

func newViper(p resolvedPath, log *zap.Logger) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if p.path == "" {
		log.Info("no config file specified, using environment only")
		return v, nil
	}

	if _, err := os.Stat(string(p.path)); errors.Is(err, os.ErrNotExist) {
		if p.explicit {
			return nil, fmt.Errorf("config file [%s] does not exist: %w", p.path, err)
		}
		log.Info("config file not found, using environment only", zap.String("configFile", string(p.path)))
		return v, nil
	}

	v.SetConfigFile(string(p.path))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", p.path, err)
	}

	return v, nil
}
