package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, cfg Config) (path string) {
	t.Helper()

	path = filepath.Join(t.TempDir(), "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	pipelineDir := t.TempDir()

	configPath := writeConfig(t, Config{
		Provider: ProviderConfig{APIKey: "test-key"},
		Pipeline: PipelineConfig{Dir: pipelineDir},
	})

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Provider.APIKey != "test-key" {
		t.Errorf("Expected API key test-key, got %s", cfg.Provider.APIKey)
	}

	if cfg.Provider.Name != "openai" {
		t.Errorf("Expected default provider openai, got %s", cfg.Provider.Name)
	}

	if cfg.Pipeline.MaxIterations != 5 {
		t.Errorf("Expected default max iterations 5, got %d", cfg.Pipeline.MaxIterations)
	}

	if cfg.Output.Dir != DefaultOutputDir {
		t.Errorf("Expected default output dir %s, got %s", DefaultOutputDir, cfg.Output.Dir)
	}

	ttl, err := cfg.SessionTTL()
	if err != nil || ttl != 24*time.Hour {
		t.Errorf("Expected 24h session TTL, got %v (%v)", ttl, err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	pipelineDir := t.TempDir()

	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("JOBDOCS_JWT_SECRET", "0123456789abcdef-env")
	t.Setenv("JOBDOCS_REDIS_ADDR", "redis:6379")

	configPath := writeConfig(t, Config{
		Provider: ProviderConfig{Name: "Anthropic", APIKey: "file-key"},
		Pipeline: PipelineConfig{Dir: pipelineDir},
	})

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Provider.APIKey != "env-anthropic" {
		t.Errorf("Expected provider-specific env key, got %s", cfg.Provider.APIKey)
	}
	if cfg.Provider.Name != "anthropic" {
		t.Errorf("Expected normalized provider name, got %s", cfg.Provider.Name)
	}
	if cfg.Server.JWTSecret != "0123456789abcdef-env" {
		t.Errorf("Expected JWT secret from env, got %s", cfg.Server.JWTSecret)
	}
	if cfg.Server.RedisAddr != "redis:6379" {
		t.Errorf("Expected redis addr from env, got %s", cfg.Server.RedisAddr)
	}

	err = cfg.ValidateServer()
	if err != nil {
		t.Errorf("Expected server config valid, got %v", err)
	}
}

func TestLoadNonexistent(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Error("Expected error loading nonexistent config, got nil")
	}
}

func TestValidate(t *testing.T) {
	pipelineDir := t.TempDir()
	notDir := filepath.Join(pipelineDir, "file.txt")
	err := os.WriteFile(notDir, []byte("x"), 0600)
	if err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name      string
		config    Config
		wantError bool
	}{
		{
			name: "valid config",
			config: Config{
				Provider: ProviderConfig{Name: "openai", APIKey: "k"},
				Pipeline: PipelineConfig{Dir: pipelineDir},
			},
			wantError: false,
		},
		{
			name: "missing API key",
			config: Config{
				Pipeline: PipelineConfig{Dir: pipelineDir},
			},
			wantError: true,
		},
		{
			name: "unknown provider",
			config: Config{
				Provider: ProviderConfig{Name: "gemini", APIKey: "k"},
				Pipeline: PipelineConfig{Dir: pipelineDir},
			},
			wantError: true,
		},
		{
			name: "missing pipeline dir",
			config: Config{
				Provider: ProviderConfig{APIKey: "k"},
			},
			wantError: true,
		},
		{
			name: "nonexistent pipeline dir",
			config: Config{
				Provider: ProviderConfig{APIKey: "k"},
				Pipeline: PipelineConfig{Dir: "/nonexistent/pipeline"},
			},
			wantError: true,
		},
		{
			name: "pipeline dir is a file",
			config: Config{
				Provider: ProviderConfig{APIKey: "k"},
				Pipeline: PipelineConfig{Dir: notDir},
			},
			wantError: true,
		},
		{
			name: "negative max iterations",
			config: Config{
				Provider: ProviderConfig{APIKey: "k"},
				Pipeline: PipelineConfig{Dir: pipelineDir, MaxIterations: -1},
			},
			wantError: true,
		},
		{
			name: "bad session ttl",
			config: Config{
				Provider: ProviderConfig{APIKey: "k"},
				Pipeline: PipelineConfig{Dir: pipelineDir},
				Server:   ServerConfig{SessionTTL: "forever"},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	cfg := Config{Server: ServerConfig{JWTSecret: "short"}}
	if cfg.ValidateServer() == nil {
		t.Error("Expected error for short JWT secret, got nil")
	}
}

func TestSettingsAndSource(t *testing.T) {
	cfg := Config{
		Provider: ProviderConfig{Name: "anthropic", APIKey: "k", Model: "m", BaseURL: "http://localhost"},
		Pipeline: PipelineConfig{Dir: "/p", Manifest: "pipeline.yaml"},
	}

	settings := cfg.LLMSettings()
	if settings.Provider != "anthropic" || settings.Model != "m" || settings.BaseURL != "http://localhost" {
		t.Errorf("Unexpected settings: %+v", settings)
	}

	source := cfg.PipelineSource()
	if source.Dir != "/p" || source.Manifest != "pipeline.yaml" {
		t.Errorf("Unexpected source: %+v", source)
	}
}

func TestInitConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "jobdocs", "config.json")

	path, err := InitConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}
	if path != configPath {
		t.Errorf("Expected path %s, got %s", configPath, path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}

	var cfg Config
	err = json.Unmarshal(data, &cfg)
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if cfg.Provider.Name != "openai" {
		t.Errorf("Expected openai provider, got %s", cfg.Provider.Name)
	}
	if cfg.Pipeline.Dir != filepath.Join(tmpDir, "jobdocs", "pipeline") {
		t.Errorf("Unexpected pipeline dir %s", cfg.Pipeline.Dir)
	}

	// Second init should fail.
	_, err = InitConfig(configPath)
	if err == nil {
		t.Error("Expected error when config already exists, got nil")
	}
}
