package main

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sudo "github.com/danielmain/electron-sudo-universal"
)

// fileConfig is the optional YAML configuration passed with --config.
type fileConfig struct {
	Name    string            `yaml:"name"`
	Icon    string            `yaml:"icon"`
	Env     map[string]string `yaml:"env"`
	TempDir string            `yaml:"tempDir"`
}

// loadConfig reads path. An empty path yields the zero configuration.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// parseEnv converts KEY=VALUE flag values to a map.
func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --env %q: expected KEY=VALUE", pair)
		}

		env[key] = value
	}

	return env, nil
}

// options merges the config file with the flags; flags win.
func (a *app) options(cmd *cobra.Command) ([]sudo.Option, error) {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = a.name
	}

	if flags.Changed("icon") {
		cfg.Icon = a.icon
	}

	if flags.Changed("temp-dir") {
		cfg.TempDir = a.tempDir
	}

	flagEnv, err := parseEnv(a.env)
	if err != nil {
		return nil, err
	}

	env := maps.Clone(cfg.Env)
	if env == nil {
		env = map[string]string{}
	}

	maps.Copy(env, flagEnv)

	opts := []sudo.Option{
		sudo.WithEnv(env),
		sudo.WithLogger(a.logger),
	}

	if a.registry != nil {
		opts = append(opts, sudo.WithRegisterer(a.registry))
	}

	if cfg.Name != "" {
		opts = append(opts, sudo.WithName(cfg.Name))
	}

	if cfg.Icon != "" {
		opts = append(opts, sudo.WithIcon(cfg.Icon))
	}

	if cfg.TempDir != "" {
		opts = append(opts, sudo.WithTempDir(cfg.TempDir))
	}

	return append(opts, a.extra...), nil
}
