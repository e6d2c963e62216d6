package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port           string `yaml:"port"`
	Environment    string `yaml:"environment"`
	AllowedOrigins string `yaml:"allowed_origins"`

	// Model backend (OpenAI-compatible chat completions)
	LLMBaseURL           string  `yaml:"llm_base_url"`
	LLMAPIKey            string  `yaml:"llm_api_key"`
	LLMModel             string  `yaml:"llm_model"`
	LLMTemperature       float64 `yaml:"llm_temperature"`
	LLMMaxTokens         int     `yaml:"llm_max_tokens"`
	LLMMaxToolIterations int     `yaml:"llm_max_tool_iterations"`

	// Remote tool server
	MCPURL     string            `yaml:"mcp_url"`
	MCPHeaders map[string]string `yaml:"mcp_headers"`
}

// Default returns the configuration used when nothing is set.
// LM Studio accepts any API key, so a placeholder is enough locally.
func Default() *Config {
	return &Config{
		Port:                 "4571",
		Environment:          "development",
		AllowedOrigins:       "*",
		LLMBaseURL:           "http://localhost:1234/v1",
		LLMAPIKey:            "not-needed",
		LLMModel:             "openai/gpt-oss-20b",
		LLMTemperature:       0.3,
		LLMMaxTokens:         1024,
		LLMMaxToolIterations: 10,
		MCPURL:               "http://localhost:3000/mcp",
		MCPHeaders:           map[string]string{},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence (env wins).
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.AllowedOrigins)

	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMTemperature = getFloatEnv("LLM_TEMPERATURE", cfg.LLMTemperature)
	cfg.LLMMaxTokens = getIntEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	cfg.LLMMaxToolIterations = getIntEnv("LLM_MAX_TOOL_ITERATIONS", cfg.LLMMaxToolIterations)

	cfg.MCPURL = getEnv("MCP_URL", cfg.MCPURL)
	for k, v := range parseHeaders(os.Getenv("MCP_HEADERS")) {
		cfg.MCPHeaders[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that URLs parse and numeric settings are in range
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	if err := validateURL("llm_base_url", c.LLMBaseURL); err != nil {
		return err
	}
	if err := validateURL("mcp_url", c.MCPURL); err != nil {
		return err
	}
	if c.LLMAPIKey == "" {
		return fmt.Errorf("llm_api_key must not be empty (use any placeholder if the backend does not check it)")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("llm_temperature must be between 0 and 2, got %v", c.LLMTemperature)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("llm_max_tokens must be positive, got %d", c.LLMMaxTokens)
	}
	if c.LLMMaxToolIterations <= 0 {
		return fmt.Errorf("llm_max_tool_iterations must be positive, got %d", c.LLMMaxToolIterations)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if c.MCPHeaders == nil {
		c.MCPHeaders = map[string]string{}
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s %q: missing host", name, raw)
	}
	return nil
}

// parseHeaders parses "Key=Value,Key2=Value2". Malformed pairs are skipped.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	if raw == "" {
		return headers
	}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
