package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Cfg 全局配置实例，启动时由 Init 加载
var Cfg *Config

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Parse     ParseConfig     `yaml:"parse"`
	MQ        MQConfig        `yaml:"mq"`
	OSS       OSSConfig       `yaml:"oss"`
	JWT       JWTConfig       `yaml:"jwt"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type DBConfig struct {
	DSN string `yaml:"dsn"`
}

// ModelConfig 模型配置，按用途区分过滤、抽取、生成模型
type ModelConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	FilterModel  string `yaml:"filter_model"`
	ExtractModel string `yaml:"extract_model"`
	ComposeModel string `yaml:"compose_model"`
}

type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	Dim       int    `yaml:"dim"`
	BatchSize int    `yaml:"batch_size"`
}

type VectorConfig struct {
	// 向量索引持久化目录
	Dir string `yaml:"dir"`

	// 索引类型: flat / ivf / hnsw
	IndexType string `yaml:"index_type"`
}

type ParseConfig struct {
	// 单文件大小上限（MB）
	MaxFileSizeMB int64 `yaml:"max_file_size_mb"`

	// 页面文本字符数低于该值视为扫描页
	OCRMinChars int `yaml:"ocr_min_chars"`

	// 是否启用OCR（外部引擎）
	OCREnabled bool `yaml:"ocr_enabled"`

	// 每千字处理成本估算（元）
	CostPerKiloWords float64 `yaml:"cost_per_kilo_words"`
}

type MQConfig struct {
	NameServer []string `yaml:"name_server"`
}

type OSSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	BucketName      string `yaml:"bucket_name"`
}

type JWTConfig struct {
	SecretKey string `yaml:"secret_key"`
}

func Init(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	applyDefaults(cfg)
	Cfg = cfg
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Embedding.Dim <= 0 {
		cfg.Embedding.Dim = 1024
	}
	if cfg.Vector.Dir == "" {
		cfg.Vector.Dir = "data/vector_store"
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "flat"
	}
	if cfg.Parse.MaxFileSizeMB <= 0 {
		cfg.Parse.MaxFileSizeMB = 100
	}
	if cfg.Parse.OCRMinChars <= 0 {
		cfg.Parse.OCRMinChars = 50
	}
	if cfg.Parse.CostPerKiloWords <= 0 {
		cfg.Parse.CostPerKiloWords = 0.5
	}
}
