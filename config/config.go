// Package config provides configuration management for the LocalMind AI
// backend. It covers the HTTP server, the Gemini upstream, logging
// preferences, and supports environment variable expansion inside the
// YAML file so credentials never have to live in the file itself.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration. A Config value is
// built once (at startup or on a watcher reload), validated, and then
// treated as immutable: request handlers only ever read from it.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 8000)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including uploaded media (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It is 0 (disabled) by default: the analyze path blocks on
	// the upstream model call, which carries no timeout of its own.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout specifies how long to wait for in-flight requests
	// during graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORS controls cross-origin access. Open to any origin by default.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig holds cross-origin settings for the public endpoints.
type CORSConfig struct {
	// AllowedOrigin is the value sent as Access-Control-Allow-Origin
	// (default: "*")
	AllowedOrigin string `yaml:"allowed_origin"`
}

// GeminiConfig holds settings for the Gemini upstream.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Usually supplied as
	// ${GEMINI_API_KEY}. The server starts without it, but /analyze will
	// answer with a misconfiguration error until it is set.
	APIKey string `yaml:"api_key"`

	// Model is the Gemini model name (default: "gemini-2.0-flash")
	Model string `yaml:"model"`

	// SystemPrompt optionally overrides the built-in instruction template.
	// It is a text/template body with .Location, .LanguageCode and .Text
	// fields.
	SystemPrompt string `yaml:"system_prompt"`

	// Timeout bounds a single upstream call. 0 disables the bound, which
	// is the default: the public contract blocks until Gemini answers.
	Timeout time.Duration `yaml:"timeout"`

	// MaxContextTokens is the context window used for prompt-size
	// accounting. Estimation only, nothing is truncated.
	MaxContextTokens int `yaml:"max_context_tokens"`

	// SearchGrounding enables the Google Search grounding tool so the
	// model can resolve real-world places and coordinates (default: true)
	SearchGrounding bool `yaml:"search_grounding"`

	// Temperature is passed through to generation when > 0.
	Temperature float64 `yaml:"temperature"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`
}

// Default returns the configuration used when no config file is present.
// The two environment knobs from the deployment surface are honored here:
// PORT selects the listening port and GEMINI_API_KEY supplies the
// credential.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedOrigin: "*",
			},
		},
		Gemini: GeminiConfig{
			APIKey:           os.Getenv("GEMINI_API_KEY"),
			Model:            "gemini-2.0-flash",
			MaxContextTokens: 16384,
			SearchGrounding:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if port := os.Getenv("PORT"); port != "" {
		if _, err := fmt.Sscanf(port, "%d", &cfg.Server.Port); err != nil {
			cfg.Server.Port = 8000
		}
	}

	return cfg
}

// LoadFile loads configuration from a YAML file.
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves environment variable references inside
// configuration strings. Supported forms:
//
//   - "${VAR}"          → value of VAR
//   - "${VAR:-default}" → value of VAR, or "default" when unset/empty
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			envKey := key[:i]
			defaultValue := key[i+2:]
			if val := os.Getenv(envKey); val != "" {
				return val
			}
			return defaultValue
		}
		return os.Getenv(key)
	})
}

// Load loads configuration from an io.Reader. The YAML is decoded on top
// of Default, so a partial file only overrides what it names.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	config := Default()

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}
	if c.Server.CORS.AllowedOrigin == "" {
		return fmt.Errorf("empty CORS allowed origin")
	}

	if c.Gemini.Model == "" {
		return fmt.Errorf("empty Gemini model")
	}
	if c.Gemini.Timeout < 0 {
		return fmt.Errorf("negative Gemini timeout: %v", c.Gemini.Timeout)
	}
	if c.Gemini.MaxContextTokens < 0 {
		return fmt.Errorf("negative max context tokens: %d", c.Gemini.MaxContextTokens)
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("temperature out of range [0, 2]: %v", c.Gemini.Temperature)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
