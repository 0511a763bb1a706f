package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort       string
	WSPort         string
	DatabaseDriver string // postgres | sqlite
	DatabaseDSN    string
	JWTSecret      string
	CORSOrigins    string
	ConfigFile     string

	Engine EngineConfig
}

// EngineConfig is the allocation engine section of the optional YAML file.
type EngineConfig struct {
	Transactional           bool   `yaml:"transactional"`
	OnProcessLeadDays       int    `yaml:"on_process_lead_days"`
	SecondWarehouseLeadDays int    `yaml:"second_warehouse_lead_days"`
	OrderNumberPrefix       string `yaml:"order_number_prefix"`
}

type fileConfig struct {
	Engine EngineConfig `yaml:"engine"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Transactional:           true,
		OnProcessLeadDays:       45,
		SecondWarehouseLeadDays: 7,
		OrderNumberPrefix:       "ORD",
	}
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		WSPort:         getEnv("WS_PORT", "8081"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=pallets port=5432 sslmode=disable"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		ConfigFile:     getEnv("CONFIG_FILE", ""),
		Engine:         DefaultEngineConfig(),
	}

	if cfg.ConfigFile != "" {
		engine, err := LoadEngineFile(cfg.ConfigFile)
		if err != nil {
			log.Fatalf("[FATAL] config dosyası okunamadı (%s): %v", cfg.ConfigFile, err)
		}
		cfg.Engine = engine
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET environment değişkeni tanımlanmamış! Production için zorunludur.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET en az 32 karakter olmalıdır! Güvenlik riski.")
	}
	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=pallets port=5432 sslmode=disable" {
		log.Println("[WARN] DATABASE_DSN varsayılan değer kullanılıyor, production için mutlaka kendi Postgres bağlantı bilgisini tanımla.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için mutlaka kendi domain'ini tanımla.")
	}

	return cfg
}

// LoadEngineFile reads the engine section of a YAML file. Missing keys keep
// their defaults.
func LoadEngineFile(path string) (EngineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, err
	}
	fc := fileConfig{Engine: DefaultEngineConfig()}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return EngineConfig{}, err
	}
	if fc.Engine.OnProcessLeadDays < 0 {
		fc.Engine.OnProcessLeadDays = 0
	}
	if fc.Engine.SecondWarehouseLeadDays < 0 {
		fc.Engine.SecondWarehouseLeadDays = 0
	}
	if fc.Engine.OrderNumberPrefix == "" {
		fc.Engine.OrderNumberPrefix = "ORD"
	}
	return fc.Engine, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
