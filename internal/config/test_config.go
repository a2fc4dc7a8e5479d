package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:    ":memory:",
			Timeout: 1 * time.Second,
		},
		Source: SourceConfig{
			URL:          "http://127.0.0.1/feed.xml",
			HTTPTimeout:  5 * time.Second,
			UserAgent:    "headline-test/1.0",
			AllowPrivate: true,
		},
		UI: UIConfig{
			Colors:         defaultConfig().UI.Colors,
			MessageTimeout: 50 * time.Millisecond,
			HistoryLimit:   20,
		},
		Keys:    defaultConfig().Keys,
		Logging: LoggingConfig{Level: "off"},
	}
}
