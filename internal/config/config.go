package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type SourceConfig struct {
	URL         string        `mapstructure:"url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	// AllowPrivate permits localhost and private network sources.
	AllowPrivate bool `mapstructure:"allow_private"`
}

type UIConfig struct {
	Colors         UIColors      `mapstructure:"colors"`
	Logo           string        `mapstructure:"logo"`
	MessageTimeout time.Duration `mapstructure:"message_timeout"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit    string `mapstructure:"quit"`
	Refresh string `mapstructure:"refresh"`
	History string `mapstructure:"history"`
	Back    string `mapstructure:"back"`
	Help    string `mapstructure:"help"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Database: DatabaseConfig{
			Path:        filepath.Join(homeDir, ".headline.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(homeDir, ".headline", "history.bleve"),
		},
		Source: SourceConfig{
			URL:         "https://go.dev/blog/feed.atom",
			HTTPTimeout: 30 * time.Second,
			UserAgent:   "headline/1.0 (https://github.com/pders01/headline)",
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
			MessageTimeout: 4 * time.Second,
			HistoryLimit:   100,
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:    "q",
				Refresh: "r",
				History: "h",
				Back:    "esc",
				Help:    "?",
			},
		},
		Logging: LoggingConfig{
			Level: "off",
			File:  filepath.Join(homeDir, ".headline", "headline.log"),
		},
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "headline", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HEADLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Decode over the defaults so partial files keep the remaining values.
	config := defaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(config)

	return config, nil
}

// envKeys can be overridden with HEADLINE_* variables, e.g. HEADLINE_SOURCE_URL.
var envKeys = []string{
	"database.path",
	"source.url",
	"source.http_timeout",
	"source.allow_private",
	"logging.level",
	"logging.file",
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.UI.Logo = expandPath(cfg.UI.Logo)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations are written as strings for TOML readability
	dbCfg := map[string]any{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	sourceCfg := map[string]any{
		"url":           config.Source.URL,
		"http_timeout":  config.Source.HTTPTimeout.String(),
		"user_agent":    config.Source.UserAgent,
		"allow_private": config.Source.AllowPrivate,
	}

	c := config.UI.Colors
	uiCfg := map[string]any{
		"colors": map[string]any{
			"primary":   c.Primary,
			"secondary": c.Secondary,
			"accent":    c.Accent,
			"text":      c.Text,
			"muted":     c.Muted,
			"error":     c.Error,
			"success":   c.Success,
		},
		"logo":            config.UI.Logo,
		"message_timeout": config.UI.MessageTimeout.String(),
		"history_limit":   config.UI.HistoryLimit,
	}

	b := config.Keys.Bindings
	keysCfg := map[string]any{
		"modifier": config.Keys.Modifier,
		"bindings": map[string]any{
			"quit":    b.Quit,
			"refresh": b.Refresh,
			"history": b.History,
			"back":    b.Back,
			"help":    b.Help,
		},
	}

	loggingCfg := map[string]any{
		"level": config.Logging.Level,
		"file":  config.Logging.File,
	}

	v.Set("database", dbCfg)
	v.Set("source", sourceCfg)
	v.Set("ui", uiCfg)
	v.Set("keys", keysCfg)
	v.Set("logging", loggingCfg)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
