package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent driftline configuration stored as
// config.toml in the .driftline/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Server      ServerConfig      `toml:"server"`
	Mastodon    MastodonConfig    `toml:"mastodon"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Summarize   SummarizeConfig   `toml:"summarize"`
	EventStream EventStreamConfig `toml:"event_stream"`
	Ingest      IngestConfig      `toml:"ingest"`
}

// StorageConfig holds the shared SQLite settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// MastodonConfig holds the instance the timeline is pulled from.
// The access token is usually supplied via DRIFTLINE_MASTODON_ACCESS_TOKEN
// rather than written to disk.
type MastodonConfig struct {
	URL         string `toml:"url,omitempty"`
	AccessToken string `toml:"access_token,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// SummarizeConfig holds the labeling LLM settings. API keys come from the
// provider's usual environment variable.
type SummarizeConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// EventStreamConfig holds model-event publishing settings.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// IngestConfig holds sync worker settings.
type IngestConfig struct {
	Workers uint `toml:"workers,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"mastodon.url": {
		get: func(c *Config) string { return c.Mastodon.URL },
		set: func(c *Config, v string) error { c.Mastodon.URL = v; return nil },
	},
	"mastodon.access_token": {
		get: func(c *Config) string { return c.Mastodon.AccessToken },
		set: func(c *Config, v string) error { c.Mastodon.AccessToken = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"summarize.provider": {
		get: func(c *Config) string { return c.Summarize.Provider },
		set: func(c *Config, v string) error { c.Summarize.Provider = v; return nil },
	},
	"summarize.target": {
		get: func(c *Config) string { return c.Summarize.Target },
		set: func(c *Config, v string) error { c.Summarize.Target = v; return nil },
	},
	"summarize.model": {
		get: func(c *Config) string { return c.Summarize.Model },
		set: func(c *Config, v string) error { c.Summarize.Model = v; return nil },
	},
	"event_stream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"event_stream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = nil
			for _, broker := range strings.Split(v, ",") {
				if broker = strings.TrimSpace(broker); broker != "" {
					c.EventStream.Brokers = append(c.EventStream.Brokers, broker)
				}
			}
			return nil
		},
	},
	"event_stream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"ingest.workers": {
		get: func(c *Config) string {
			if c.Ingest.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Ingest.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.workers: %w", err)
			}
			c.Ingest.Workers = uint(n)
			return nil
		},
	},
}
