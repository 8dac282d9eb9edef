package config

import (
	"encoding/json"
	"log"
	"os"
)

type Config struct {
	App          AppConfig                 `json:"app"`
	Server       ServerConfig              `json:"server"`
	Providers    map[string]ProviderConfig `json:"providers"`
	Orchestrator OrchestratorConfig        `json:"orchestrator"`
	Storage      StorageConfig             `json:"storage"`
	Limits       LimitsConfig              `json:"limits"`
}

type AppConfig struct {
	Name      string `json:"name"`
	Workspace string `json:"workspace"`
}

type ServerConfig struct {
	Listen string `json:"listen"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type OrchestratorConfig struct {
	// SecretKey is the shared HMAC secret for plan approval signatures.
	SecretKey string `json:"secret_key"`
	// AsyncExecution hands approved plans to the background runner
	// instead of executing them on the request path.
	AsyncExecution bool `json:"async_execution"`
}

type StorageConfig struct {
	Path string `json:"path"`
}

type LimitsConfig struct {
	PlanContextChars     int `json:"plan_context_chars"`
	AnalysisContextChars int `json:"analysis_context_chars"`
	MaxFindings          int `json:"max_findings"`
	MaxSearchHits        int `json:"max_search_hits"`
}

func LoadConfig(path string) *Config {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills zero-valued fields with the budgets the
// collaborators were tuned for.
func (c *Config) ApplyDefaults() {
	if c.App.Workspace == "" {
		c.App.Workspace = "./workspace"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "sleuth.db"
	}
	if c.Limits.PlanContextChars == 0 {
		c.Limits.PlanContextChars = 5000
	}
	if c.Limits.AnalysisContextChars == 0 {
		c.Limits.AnalysisContextChars = 10000
	}
	if c.Limits.MaxFindings == 0 {
		c.Limits.MaxFindings = 20
	}
	if c.Limits.MaxSearchHits == 0 {
		c.Limits.MaxSearchHits = 10
	}
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
