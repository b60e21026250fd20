package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Redis      Redis      `mapstructure:"redis"`
	Database   Database   `mapstructure:"database"`
	AI         AI         `mapstructure:"ai"`
	Briefing   Briefing   `mapstructure:"briefing"`
	Clustering Clustering `mapstructure:"clustering"`
	Logging    Logging    `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Redis holds connection settings for the cache, cluster storage, usage
// counters, locks, and pub/sub.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Database holds the SQLite store configuration.
type Database struct {
	Path    string `mapstructure:"path"`
	Timeout string `mapstructure:"timeout"`
}

// AI holds LLM provider configuration
type AI struct {
	DefaultModel string          `mapstructure:"default_model"`
	Anthropic    AnthropicConfig `mapstructure:"anthropic"`
	OpenAI       OpenAIConfig    `mapstructure:"openai"`
	Google       GoogleConfig    `mapstructure:"google"`
	XAI          XAIConfig       `mapstructure:"xai"`
}

// AnthropicConfig holds Anthropic configuration
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Timeout string `mapstructure:"timeout"`
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// GoogleConfig holds Google Gemini configuration
type GoogleConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Timeout string `mapstructure:"timeout"`
}

// XAIConfig holds xAI configuration. The xAI API is OpenAI-compatible, so
// only the base URL differs from OpenAIConfig.
type XAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// Briefing holds briefing generation configuration
type Briefing struct {
	SiteURL       string `mapstructure:"site_url"`
	IconsDir      string `mapstructure:"icons_dir"`
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

// Clustering holds story clustering configuration
type Clustering struct {
	SemanticEnabled bool   `mapstructure:"semantic_enabled"`
	SearchURL       string `mapstructure:"search_url"`
	SearchTimeout   string `mapstructure:"search_timeout"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

var globalConfig *Config

// Load loads configuration from file, environment variables, and defaults
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists (ignore errors if not found)
	_ = godotenv.Load()

	viper.Reset()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsbrief")
		viper.SetConfigType("yaml")
	}

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvironmentVariables()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply post-processing
	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".newsbrief")

	// Redis defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// Database defaults
	viper.SetDefault("database.path", ".newsbrief/newsbrief.db")
	viper.SetDefault("database.timeout", "5s")

	// AI defaults
	viper.SetDefault("ai.default_model", "")
	viper.SetDefault("ai.anthropic.timeout", "120s")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.openai.timeout", "120s")
	viper.SetDefault("ai.google.timeout", "120s")
	viper.SetDefault("ai.xai.base_url", "https://api.x.ai/v1")
	viper.SetDefault("ai.xai.timeout", "120s")

	// Briefing defaults
	viper.SetDefault("briefing.site_url", "https://localhost")
	viper.SetDefault("briefing.icons_dir", "icons")
	viper.SetDefault("briefing.sweep_schedule", "0 * * * *")

	// Clustering defaults
	viper.SetDefault("clustering.semantic_enabled", false)
	viper.SetDefault("clustering.search_url", "")
	viper.SetDefault("clustering.search_timeout", "10s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Anthropic API key
	bindEnvKeys("ai.anthropic.api_key", []string{
		"ANTHROPIC_API_KEY",
	})

	// OpenAI API key
	bindEnvKeys("ai.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	// Google API key - support multiple formats
	bindEnvKeys("ai.google.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
		"GOOGLE_API_KEY",
	})

	// xAI API key
	bindEnvKeys("ai.xai.api_key", []string{
		"XAI_API_KEY",
		"GROK_API_KEY",
	})

	// Redis
	bindEnvKeys("redis.addr", []string{
		"REDIS_ADDR",
		"REDIS_URL",
	})

	bindEnvKeys("redis.password", []string{
		"REDIS_PASSWORD",
	})

	// General settings
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"NEWSBRIEF_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	// Expand paths
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Database.Path != "" {
		config.Database.Path = expandPath(config.Database.Path)
	}
	if config.Briefing.IconsDir != "" {
		config.Briefing.IconsDir = expandPath(config.Briefing.IconsDir)
	}

	// Validate durations
	durations := map[string]string{
		"database.timeout":          config.Database.Timeout,
		"ai.anthropic.timeout":      config.AI.Anthropic.Timeout,
		"ai.openai.timeout":         config.AI.OpenAI.Timeout,
		"ai.google.timeout":         config.AI.Google.Timeout,
		"ai.xai.timeout":            config.AI.XAI.Timeout,
		"clustering.search_timeout": config.Clustering.SearchTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// Convenience getters for commonly used configuration values
func GetApp() App               { return Get().App }
func GetRedis() Redis           { return Get().Redis }
func GetDatabase() Database     { return Get().Database }
func GetAI() AI                 { return Get().AI }
func GetBriefing() Briefing     { return Get().Briefing }
func GetClustering() Clustering { return Get().Clustering }
func GetLogging() Logging       { return Get().Logging }

// Specific convenience getters for frequently accessed values
func GetAnthropicAPIKey() string { return Get().AI.Anthropic.APIKey }
func GetOpenAIAPIKey() string    { return Get().AI.OpenAI.APIKey }
func GetGoogleAPIKey() string    { return Get().AI.Google.APIKey }
func GetXAIAPIKey() string       { return Get().AI.XAI.APIKey }
func GetSiteURL() string         { return Get().Briefing.SiteURL }
func IsDebugMode() bool          { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
