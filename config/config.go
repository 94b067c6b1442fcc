//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package config loads the layered TOML configuration: the user file under
// the home directory first, then the project file merged over it.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wangchen7722/eflycode-cli-sub001/hook"
)

const (
	// configDirName is the dot directory holding the config file.
	configDirName = ".eflycode"
	// configFileName is the file name inside the config directory.
	configFileName = "config.toml"
)

// LoggingConfig mirrors the [logging] table.
type LoggingConfig struct {
	DirPath   string `toml:"dirpath"`
	Filename  string `toml:"filename"`
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	Rotation  string `toml:"rotation"`
	Retention int    `toml:"retention"`
	Encoding  string `toml:"encoding"`
}

// ModelEntry is one configured model endpoint.
type ModelEntry struct {
	Model                  string  `toml:"model"`
	Name                   string  `toml:"name"`
	Provider               string  `toml:"provider"`
	APIKey                 string  `toml:"api_key"`
	BaseURL                string  `toml:"base_url"`
	MaxContextLength       int     `toml:"max_context_length"`
	Temperature            float64 `toml:"temperature"`
	SupportsNativeToolCall bool    `toml:"supports_native_tool_call"`
}

// ModelConfig mirrors the [model] table.
type ModelConfig struct {
	Default string       `toml:"default"`
	Entries []ModelEntry `toml:"entries"`
}

// Strategy type names for ContextConfig.StrategyType.
const (
	StrategySlidingWindow = "sliding_window"
	StrategySummary       = "summary"
)

// ContextConfig mirrors the [context] table.
type ContextConfig struct {
	StrategyType      string  `toml:"strategy_type"`
	SlidingWindowSize int     `toml:"sliding_window_size"`
	SummaryThreshold  float64 `toml:"summary_threshold"`
	SummaryKeepRecent int     `toml:"summary_keep_recent"`
	SummaryModel      string  `toml:"summary_model"`
}

// Config is the merged configuration.
type Config struct {
	EnableHooks *bool                   `toml:"enable_hooks"`
	Logging     LoggingConfig           `toml:"logging"`
	Model       ModelConfig             `toml:"model"`
	Context     ContextConfig           `toml:"context"`
	Hooks       map[string][]hook.Group `toml:"hooks"`
}

// HooksEnabled reports the enable switch, default true.
func (c *Config) HooksEnabled() bool {
	return c.EnableHooks == nil || *c.EnableHooks
}

// DefaultEntry resolves the model entry named by model.default, or the
// first entry when no default is named.
func (c *Config) DefaultEntry() (*ModelEntry, error) {
	if len(c.Model.Entries) == 0 {
		return nil, fmt.Errorf("no model entries configured")
	}
	if c.Model.Default == "" {
		return &c.Model.Entries[0], nil
	}
	for i := range c.Model.Entries {
		if c.Model.Entries[i].Name == c.Model.Default {
			return &c.Model.Entries[i], nil
		}
	}
	return nil, fmt.Errorf("default model %q not found in model entries", c.Model.Default)
}

// ResolveAPIKey returns the entry's API key, falling back to the
// <PROVIDER>_API_KEY environment variable and then OPENAI_API_KEY.
func (e *ModelEntry) ResolveAPIKey() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	if e.Provider != "" {
		envName := strings.ToUpper(e.Provider) + "_API_KEY"
		if key := os.Getenv(envName); key != "" {
			return key
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}

// HookGroups converts the raw hooks table into the typed pipeline input.
func (c *Config) HookGroups() map[hook.EventName][]hook.Group {
	if len(c.Hooks) == 0 {
		return nil
	}
	out := make(map[hook.EventName][]hook.Group, len(c.Hooks))
	for name, groups := range c.Hooks {
		out[hook.EventName(name)] = groups
	}
	return out
}

// UserPath returns the user-level config file path.
func UserPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName, configFileName)
}

// ProjectPath returns the project-level config file path under dir.
func ProjectPath(dir string) string {
	return filepath.Join(dir, configDirName, configFileName)
}

// Load reads and merges the config files. Missing files are skipped; the
// project layer overrides the user layer key by key.
func Load(paths ...string) (*Config, error) {
	merged := make(map[string]any)
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		layer := make(map[string]any)
		if err := toml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		deepMerge(merged, layer)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(merged); err != nil {
		return nil, fmt.Errorf("re-encode merged config: %w", err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(buf.Bytes(), cfg); err != nil {
		return nil, fmt.Errorf("decode merged config: %w", err)
	}
	return cfg, nil
}

// deepMerge folds src into dst. Tables merge recursively; everything else,
// including arrays, is replaced wholesale.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcTable, srcOK := v.(map[string]any)
		dstTable, dstOK := dst[k].(map[string]any)
		if srcOK && dstOK {
			deepMerge(dstTable, srcTable)
			continue
		}
		dst[k] = v
	}
}
