package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for the assistant backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
}

// ServerConfig controls the HTTP entry point.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	EnableCORS     bool          `mapstructure:"enable_cors"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LLMConfig controls the language-model collaborator.
type LLMConfig struct {
	Model           string        `mapstructure:"model"`
	ClassifierModel string        `mapstructure:"classifier_model"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// StoreConfig controls the durable conversation store.
type StoreConfig struct {
	DatabaseURL   string        `mapstructure:"database_url"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// CacheConfig controls the in-process conversation cache.
type CacheConfig struct {
	MaxSessions int `mapstructure:"max_sessions"`
	MaxTurns    int `mapstructure:"max_turns"`
}

// RetrievalConfig controls the vector-search collaborator.
type RetrievalConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	PersistPath   string  `mapstructure:"persist_path"`
	Collection    string  `mapstructure:"collection"`
	TopK          int     `mapstructure:"top_k"`
	MinSimilarity float64 `mapstructure:"min_similarity"`
	EmbedModel    string  `mapstructure:"embed_model"`
	EmbedBaseURL  string  `mapstructure:"embed_base_url"`
	EmbedAPIKey   string  `mapstructure:"embed_api_key"`
}

// Load reads mira-config.{yaml,json} from $HOME or the working directory and
// applies MIRA_* environment overrides on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("mira-config")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MIRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.request_timeout", 60*time.Second)

	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.classifier_model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.timeout", 30*time.Second)

	v.SetDefault("store.idle_ttl", 30*time.Minute)
	v.SetDefault("store.sweep_interval", 5*time.Minute)

	v.SetDefault("cache.max_sessions", 20)
	v.SetDefault("cache.max_turns", 10)

	v.SetDefault("retrieval.enabled", true)
	v.SetDefault("retrieval.collection", "knowledge")
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("retrieval.min_similarity", 0.3)
	v.SetDefault("retrieval.embed_model", "text-embedding-3-small")
	v.SetDefault("retrieval.embed_base_url", "https://api.openai.com/v1")
}
