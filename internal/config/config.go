package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int `yaml:"port"`
		MaxUploadMB int `yaml:"maxUploadMB"`
	} `yaml:"server"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	// Auth maps tenant -> API key; kosong berarti auth dimatikan (mode demo).
	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | none
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Inference struct {
		Backend        string `yaml:"backend"` // http | openai
		Endpoint       string `yaml:"endpoint"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
		OpenAIModel    string `yaml:"openaiModel"`
		OpenAIKey      string `yaml:"openaiKey"`
	} `yaml:"inference"`

	Fallback struct {
		DelayMS int `yaml:"delayMS"`
	} `yaml:"fallback"`
}

// Load baca file config.yaml; .env dimuat dulu supaya secret bisa lewat env.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// secrets dari env menang atas yaml
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Inference.OpenAIKey = v
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 10
	}
	if c.Inference.Backend == "" {
		c.Inference.Backend = "http"
	}
	if c.Inference.TimeoutSeconds == 0 {
		c.Inference.TimeoutSeconds = 30
	}
	if c.Fallback.DelayMS == 0 {
		c.Fallback.DelayMS = 2000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "none"
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 30
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 1
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
