package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
	Env  string `toml:"env"`
}

type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	MaxTokens int    `toml:"max_tokens"`
}

type StoreConfig struct {
	// Driver is one of "neo4j", "sqlite" or "memory".
	Driver string `toml:"driver"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	Issuer    string   `toml:"issuer"`
	Audience  []string `toml:"audience"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	Burst             int `toml:"burst"`
}

type CirclesConfig struct {
	// Algorithm is "label_propagation" or "components".
	Algorithm string `toml:"algorithm"`
}

// PromptConfig overrides the built-in prompt texts. Empty values keep the
// defaults.
type PromptConfig struct {
	System   string `toml:"system"`
	Opener   string `toml:"opener"`
	Analysis string `toml:"analysis"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	LLM       LLMConfig       `toml:"llm"`
	Store     StoreConfig     `toml:"store"`
	Neo4j     Neo4jConfig     `toml:"neo4j"`
	SQLite    SQLiteConfig    `toml:"sqlite"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Prompts   PromptConfig    `toml:"prompts"`
	Circles   CirclesConfig   `toml:"circles"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Env: "development"},
		LLM: LLMConfig{
			Provider:  "ollama",
			Model:     "gpt-oss:latest",
			BaseURL:   "http://localhost:11434",
			MaxTokens: 2048,
		},
		Store:     StoreConfig{Driver: "neo4j"},
		Neo4j:     Neo4jConfig{URI: "bolt://localhost:7687", User: "neo4j"},
		SQLite:    SQLiteConfig{Path: "notalone.db"},
		RateLimit: RateLimitConfig{RequestsPerMinute: 20, Burst: 5},
		Circles:   CirclesConfig{Algorithm: "label_propagation"},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// not an error; environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables when set.
func (c *Config) ApplyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Env, "ENV")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Neo4j.URI, "NEO4J_URI")
	setString(&c.Neo4j.User, "NEO4J_USER")
	setString(&c.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&c.SQLite.Path, "SQLITE_PATH")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.Issuer, "JWT_ISSUER")
	setString(&c.Circles.Algorithm, "CIRCLES_ALGORITHM")
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		c.Auth.Audience = strings.Split(v, ",")
	}
	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.RequestsPerMinute = n
		}
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (JWT_SECRET) is required")
	}
	switch c.Store.Driver {
	case "neo4j":
		if c.Neo4j.URI == "" {
			return fmt.Errorf("neo4j.uri is required for the neo4j store")
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite store")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported store driver: %q", c.Store.Driver)
	}
	switch strings.ToLower(c.Circles.Algorithm) {
	case "", "label_propagation", "components":
	default:
		return fmt.Errorf("unsupported circles algorithm: %q", c.Circles.Algorithm)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
