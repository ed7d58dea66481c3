package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend struct {
		BaseURL        string `yaml:"baseURL"`
		WSURL          string `yaml:"wsURL"`
		APIKey         string `yaml:"apiKey"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"backend"`

	AI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"ai"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Default returns the configuration used when no config.yaml is present.
func Default() *Config {
	var cfg Config
	cfg.Backend.BaseURL = "http://localhost:8000"
	cfg.Backend.TimeoutSeconds = 30
	cfg.AI.Model = "gpt-4o"
	cfg.applyEnv()
	return &cfg
}

// Load baca file config.yaml, env vars menimpa secrets
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DEVASSIST_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("DEVASSIST_WS_URL"); v != "" {
		c.Backend.WSURL = v
	}
	if v := os.Getenv("DEVASSIST_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
}

func (c *Config) Timeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// WebSocketURL derives the progress-channel base from the HTTP base when no
// explicit wsURL is configured.
func (c *Config) WebSocketURL() string {
	if c.Backend.WSURL != "" {
		return c.Backend.WSURL
	}
	base := c.Backend.BaseURL
	if strings.HasPrefix(base, "https://") {
		return "wss://" + strings.TrimPrefix(base, "https://")
	}
	return "ws://" + strings.TrimPrefix(base, "http://")
}

// StoragePath is where the local fallback store lives.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "devassist.db"
	}
	return filepath.Join(home, ".devassist", "history.db")
}
