package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Home     string         `mapstructure:"home"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Map      MapConfig      `mapstructure:"map"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	Host        string   `mapstructure:"host"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LLMConfig configures the chat completion provider. Any OpenAI-compatible
// endpoint works; the defaults target DeepSeek.
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// MapConfig configures the Baidu Map web service client.
type MapConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
	CacheTTLMin    int     `mapstructure:"cache_ttl_minutes"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

func Load(configPath string) (*Config, error) {
	config := &Config{}

	home := os.Getenv("TRIPFLOW_HOME")
	if home == "" {
		home = "~/.tripflow"
	}
	home = expandHomePath(home)

	if configPath != "" {
		absPath, _ := filepath.Abs(configPath)
		viper.SetConfigFile(absPath)
		home = filepath.Dir(absPath)
	} else {
		// Check order:
		// 1. ./tripflow.toml
		// 2. ~/.tripflow/tripflow.toml
		if _, err := os.Stat("tripflow.toml"); err == nil {
			abs, _ := filepath.Abs("tripflow.toml")
			viper.SetConfigFile(abs)
			home = filepath.Dir(abs)
		} else {
			viper.SetConfigFile(filepath.Join(home, "tripflow.toml"))
		}
	}

	setDefaults()
	bindEnvVars()

	if err := viper.ReadInConfig(); err != nil {
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		// If the default config doesn't exist, we continue with defaults
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Home == "" {
		config.Home = home
	}
	config.Home = expandHomePath(config.Home)

	config.resolveDatabasePath()
	config.expandPaths()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8910)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.cors_origins", []string{"*"})

	viper.SetDefault("llm.base_url", "https://api.deepseek.com/v1")
	viper.SetDefault("llm.model", "deepseek-chat")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 2000)

	viper.SetDefault("map.base_url", "https://api.map.baidu.com")
	viper.SetDefault("map.timeout_seconds", 10)
	viper.SetDefault("map.requests_per_sec", 10.0)
	viper.SetDefault("map.cache_ttl_minutes", 30)

	viper.SetDefault("auth.token_ttl_hours", 24)
}

func bindEnvVars() {
	viper.SetEnvPrefix("TRIPFLOW")
	viper.AutomaticEnv()

	bindings := map[string]string{
		"home":            "TRIPFLOW_HOME",
		"server.port":     "TRIPFLOW_SERVER_PORT",
		"server.host":     "TRIPFLOW_SERVER_HOST",
		"database.path":   "TRIPFLOW_DATABASE_PATH",
		"llm.base_url":    "TRIPFLOW_LLM_BASE_URL",
		"llm.api_key":     "TRIPFLOW_LLM_API_KEY",
		"llm.model":       "TRIPFLOW_LLM_MODEL",
		"map.api_key":     "TRIPFLOW_MAP_API_KEY",
		"auth.jwt_secret": "TRIPFLOW_AUTH_JWT_SECRET",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Printf("Warning: failed to bind %s env var: %v", key, err)
		}
	}
}

// DataDir returns the path to the data directory
func (c *Config) DataDir() string {
	return filepath.Join(c.Home, "data")
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url cannot be empty")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm model cannot be empty")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature out of range: %f", c.LLM.Temperature)
	}

	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm max_tokens must be positive: %d", c.LLM.MaxTokens)
	}

	if c.Map.TimeoutSeconds <= 0 {
		return fmt.Errorf("map timeout_seconds must be positive: %d", c.Map.TimeoutSeconds)
	}

	if c.Map.RequestsPerSec <= 0 {
		return fmt.Errorf("map requests_per_sec must be positive: %f", c.Map.RequestsPerSec)
	}

	if c.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("auth token_ttl_hours must be positive: %d", c.Auth.TokenTTLHours)
	}

	return nil
}

func (c *Config) resolveDatabasePath() {
	if c.Database.Path != "" {
		return
	}

	c.Database.Path = filepath.Join(c.DataDir(), "tripflow.db")
}

func (c *Config) expandPaths() {
	c.Home = expandHomePath(c.Home)
	c.Database.Path = expandHomePath(c.Database.Path)
	ensureParentDir(c.Database.Path)
}

func expandHomePath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

func ensureParentDir(filePath string) {
	if filePath == "" {
		return
	}

	dir := filepath.Dir(filePath)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Warning: failed to create directory %s: %v", dir, err)
		}
	}
}
