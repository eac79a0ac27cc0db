package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikogura/jobdocs/pkg/llm"
	"github.com/nikogura/jobdocs/pkg/loader"
	"github.com/nikogura/jobdocs/pkg/placeholder"
	"github.com/pkg/errors"
)

const (
	// DefaultOutputDir is where documents go when output.dir is unset.
	DefaultOutputDir = "./applications"
	// DefaultAddr is the listen address of the web application.
	DefaultAddr = ":8080"
	// DefaultDatabasePath is the SQLite file of the web application.
	DefaultDatabasePath = "jobdocs.db"
	// DefaultSessionTTL is how long an idle run survives.
	DefaultSessionTTL = "24h"
	// MinJWTSecretLength guards against trivially guessable signing keys.
	MinJWTSecretLength = 16
)

// Config represents the application configuration.
type Config struct {
	Provider ProviderConfig `json:"provider"`
	Pipeline PipelineConfig `json:"pipeline"`
	Output   OutputConfig   `json:"output"`
	Server   ServerConfig   `json:"server"`
	LogMode  string         `json:"log_mode,omitempty"`
}

// ProviderConfig selects the completion service.
type ProviderConfig struct {
	Name    string `json:"name"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// PipelineConfig locates the prompt pipeline.
type PipelineConfig struct {
	Dir             string `json:"dir"`
	InputsManifest  string `json:"inputs_manifest,omitempty"`
	PromptsManifest string `json:"prompts_manifest,omitempty"`
	// Manifest names a YAML manifest inside Dir; it replaces the line manifests.
	Manifest      string `json:"manifest,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	FinalStep     string `json:"final_step,omitempty"`
}

// OutputConfig controls document export.
type OutputConfig struct {
	Dir          string `json:"dir"`
	ReferenceDoc string `json:"reference_doc,omitempty"`
	KeepMarkdown bool   `json:"keep_markdown,omitempty"`
}

// ServerConfig holds web application settings.
type ServerConfig struct {
	Addr           string   `json:"addr,omitempty"`
	JWTSecret      string   `json:"jwt_secret,omitempty"`
	DatabasePath   string   `json:"database_path,omitempty"`
	RedisAddr      string   `json:"redis_addr,omitempty"`
	SessionTTL     string   `json:"session_ttl,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// DefaultPath returns $HOME/.jobdocs/config.json.
func DefaultPath() (path string, err error) {
	var homeDir string
	homeDir, err = os.UserHomeDir()
	if err != nil {
		err = errors.Wrap(err, "failed to get user home directory")
		return path, err
	}
	path = filepath.Join(homeDir, ".jobdocs", "config.json")
	return path, err
}

// Load reads configuration from file with environment variable overrides.
func Load(configPath string) (cfg Config, err error) {
	// Determine config file location
	path := configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	// Read config file
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Errorf("config file not found: %s (run 'jobdocs init' to create)", path)
			return cfg, err
		}
		err = errors.Wrapf(err, "failed to read config file: %s", path)
		return cfg, err
	}

	// Parse JSON
	err = json.Unmarshal(data, &cfg)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse config file: %s", path)
		return cfg, err
	}

	cfg.applyEnv()

	// Validate required fields
	err = cfg.Validate()
	if err != nil {
		err = errors.Wrap(err, "config validation failed")
		return cfg, err
	}

	return cfg, err
}

// applyEnv overrides secrets and addresses from the environment.
func (c *Config) applyEnv() {
	switch strings.ToLower(c.Provider.Name) {
	case llm.ProviderAnthropic:
		if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
			c.Provider.APIKey = apiKey
		}
	default:
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			c.Provider.APIKey = apiKey
		}
	}

	if secret := os.Getenv("JOBDOCS_JWT_SECRET"); secret != "" {
		c.Server.JWTSecret = secret
	}

	if addr := os.Getenv("JOBDOCS_REDIS_ADDR"); addr != "" {
		c.Server.RedisAddr = addr
	}
}

// Validate checks that all required configuration is present and fills defaults.
func (c *Config) Validate() (err error) {
	if c.Provider.Name == "" {
		c.Provider.Name = llm.ProviderOpenAI
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)

	if c.Provider.Name != llm.ProviderOpenAI && c.Provider.Name != llm.ProviderAnthropic {
		err = errors.Errorf("provider.name must be %q or %q, got %q", llm.ProviderOpenAI, llm.ProviderAnthropic, c.Provider.Name)
		return err
	}

	if c.Provider.APIKey == "" {
		err = errors.New("provider.api_key is required (set in config, OPENAI_API_KEY or ANTHROPIC_API_KEY)")
		return err
	}

	if c.Pipeline.Dir == "" {
		err = errors.New("pipeline.dir is required in config")
		return err
	}

	// Check pipeline directory exists
	var info os.FileInfo
	info, err = os.Stat(c.Pipeline.Dir)
	if err != nil {
		err = errors.Errorf("pipeline directory not found: %s", c.Pipeline.Dir)
		return err
	}
	if !info.IsDir() {
		err = errors.Errorf("pipeline.dir is not a directory: %s", c.Pipeline.Dir)
		return err
	}

	if c.Pipeline.MaxIterations < 0 {
		err = errors.New("pipeline.max_iterations must not be negative")
		return err
	}
	if c.Pipeline.MaxIterations == 0 {
		c.Pipeline.MaxIterations = placeholder.DefaultMaxIterations
	}

	// Set default output dir if not specified
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.DatabasePath == "" {
		c.Server.DatabasePath = DefaultDatabasePath
	}
	if c.Server.SessionTTL == "" {
		c.Server.SessionTTL = DefaultSessionTTL
	}
	_, err = c.SessionTTL()
	if err != nil {
		return err
	}

	if c.LogMode == "" {
		c.LogMode = "dev"
	}

	return err
}

// ValidateServer checks the settings only the web application needs.
func (c *Config) ValidateServer() (err error) {
	if len(c.Server.JWTSecret) < MinJWTSecretLength {
		err = errors.Errorf("server.jwt_secret must be at least %d characters (set in config or JOBDOCS_JWT_SECRET)", MinJWTSecretLength)
		return err
	}
	return err
}

// SessionTTL parses server.session_ttl.
func (c *Config) SessionTTL() (ttl time.Duration, err error) {
	raw := c.Server.SessionTTL
	if raw == "" {
		raw = DefaultSessionTTL
	}

	ttl, err = time.ParseDuration(raw)
	if err != nil {
		err = errors.Wrapf(err, "invalid server.session_ttl %q", raw)
		return ttl, err
	}
	if ttl <= 0 {
		err = errors.Errorf("server.session_ttl must be positive, got %q", raw)
		return ttl, err
	}

	return ttl, err
}

// LLMSettings returns the provider selection for llm.New.
func (c *Config) LLMSettings() (settings llm.Settings) {
	settings = llm.Settings{
		Provider: c.Provider.Name,
		APIKey:   c.Provider.APIKey,
		Model:    c.Provider.Model,
		BaseURL:  c.Provider.BaseURL,
	}
	return settings
}

// PipelineSource returns where the pipeline is loaded from.
func (c *Config) PipelineSource() (source loader.Source) {
	source = loader.Source{
		Dir:             c.Pipeline.Dir,
		InputsManifest:  c.Pipeline.InputsManifest,
		PromptsManifest: c.Pipeline.PromptsManifest,
		Manifest:        c.Pipeline.Manifest,
	}
	return source
}

// InitConfig creates a default configuration file.
func InitConfig(configPath string) (path string, err error) {
	// Determine config file location
	path = configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return path, err
		}
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create config directory: %s", dir)
		return path, err
	}

	// Check if file already exists
	_, err = os.Stat(path)
	if err == nil {
		err = errors.Errorf("config file already exists: %s", path)
		return path, err
	}

	defaultConfig := Config{
		Provider: ProviderConfig{
			Name:   llm.ProviderOpenAI,
			APIKey: "sk-...",
			Model:  llm.OpenAIModel,
		},
		Pipeline: PipelineConfig{
			Dir:             filepath.Join(dir, "pipeline"),
			InputsManifest:  loader.DefaultInputsManifest,
			PromptsManifest: loader.DefaultPromptsManifest,
			MaxIterations:   placeholder.DefaultMaxIterations,
		},
		Output: OutputConfig{
			Dir: DefaultOutputDir,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			DatabasePath: filepath.Join(dir, DefaultDatabasePath),
			SessionTTL:   DefaultSessionTTL,
		},
		LogMode: "dev",
	}

	// Write to file
	var data []byte
	data, err = json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		err = errors.Wrap(err, "failed to marshal default config")
		return path, err
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write config file: %s", path)
		return path, err
	}

	return path, err
}
