package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. FRONTLINE_GENERATOR_API_KEY
const EnvPrefix = "frontline"

// Config holds all configuration for the application
type Config struct {
	// WhatsApp configuration
	WhatsApp WhatsAppConfig `json:"whatsapp"`

	// Session storage configuration
	Database DatabaseConfig `json:"database"`

	// Narrative archive configuration
	Archive ArchiveConfig `json:"archive"`

	// Narrative generator configuration
	Generator GeneratorConfig `json:"generator"`

	// Game configuration
	Game GameConfig `json:"game"`

	// Server configuration
	Server ServerConfig `json:"server"`
}

// WhatsAppConfig holds WhatsApp specific configuration
type WhatsAppConfig struct {
	// Whether the chat transport is started
	Enabled bool `json:"enabled"`

	// Path to store WhatsApp session data
	StoreDir string `json:"store_dir" split_words:"true"`

	// Client device name
	ClientName string `json:"client_name" split_words:"true"`

	// Directory for pairing QR code images
	QRCodeDir string `json:"qr_code_dir" envconfig:"QR_CODE_DIR"`
}

// DatabaseConfig holds session storage configuration
type DatabaseConfig struct {
	// Session store driver (sqlite, postgres, file, memory)
	Driver string `json:"driver"`

	// Database connection string
	DSN string `json:"dsn"`

	// Directory for the file driver
	SessionDir string `json:"session_dir" split_words:"true"`
}

// ArchiveConfig holds narrative archive configuration
type ArchiveConfig struct {
	// Archive backend (sql, redis, memory)
	Backend string `json:"backend"`

	// Redis address for the redis backend
	RedisAddr string `json:"redis_addr" split_words:"true"`

	// Redis password
	RedisPassword string `json:"redis_password" split_words:"true"`

	// Redis database index
	RedisDB int `json:"redis_db" envconfig:"REDIS_DB"`

	// Time to keep archived text in redis, 0 keeps it forever
	TTLSeconds int `json:"ttl_seconds" envconfig:"TTL_SECONDS"`
}

// GeneratorConfig holds narrative generator configuration
type GeneratorConfig struct {
	// Generator backend (openai, ollama, gemini, none)
	Backend string `json:"backend"`

	// Model name
	Model string `json:"model"`

	// Base URL of the API, empty for the provider default
	BaseURL string `json:"base_url" envconfig:"BASE_URL"`

	// API key for hosted providers
	APIKey string `json:"api_key" envconfig:"API_KEY"`

	// Per request timeout in seconds
	TimeoutSeconds int `json:"timeout_seconds" split_words:"true"`

	// Sampling parameters
	MaxTokens   int     `json:"max_tokens" split_words:"true"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p" envconfig:"TOP_P"`
}

// GameConfig holds game rule configuration
type GameConfig struct {
	// Hard turn limit per mission
	TurnCap int `json:"turn_cap" split_words:"true"`

	// Hysteresis margin of the outcome detector
	OutcomeMargin int `json:"outcome_margin" split_words:"true"`

	// Turn from which the outcome detector forces a verdict
	ResolutionTurn int `json:"resolution_turn" split_words:"true"`

	// Narrative length that triggers compaction, in characters
	SummaryThreshold int `json:"summary_threshold" split_words:"true"`

	// Target length of a compacted narrative, in characters
	SummaryBudget int `json:"summary_budget" split_words:"true"`

	// Store detected fights for the player to resolve instead of resolving them at once
	InteractiveCombat bool `json:"interactive_combat" split_words:"true"`

	// Optional JSON file replacing the built-in mission catalog
	MissionsFile string `json:"missions_file" split_words:"true"`

	// Random seed, 0 seeds from the clock
	Seed int64 `json:"seed"`
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level" split_words:"true"`

	// Log encoding (json, console)
	LogEncoding string `json:"log_encoding" split_words:"true"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		WhatsApp: WhatsAppConfig{
			Enabled:    false,
			StoreDir:   "./whatsapp-store",
			ClientName: "FRONTLINE MISSIONS",
			QRCodeDir:  "./assets/qrcodes",
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			DSN:        "./data/frontline.db",
			SessionDir: "./data/sessions",
		},
		Archive: ArchiveConfig{
			Backend:    "sql",
			RedisAddr:  "localhost:6379",
			TTLSeconds: 0,
		},
		Generator: GeneratorConfig{
			Backend:        "none",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 30,
			MaxTokens:      350,
			Temperature:    0.8,
			TopP:           0.9,
		},
		Game: GameConfig{
			TurnCap:           6,
			OutcomeMargin:     5,
			ResolutionTurn:    7,
			SummaryThreshold:  800,
			SummaryBudget:     800,
			InteractiveCombat: false,
		},
		Server: ServerConfig{
			Port:        "8080",
			LogLevel:    "info",
			LogEncoding: "json",
		},
	}
}

// LoadConfig loads configuration from a file, then applies .env and environment overrides
func LoadConfig(path string) (Config, error) {
	config, err := loadFile(path)
	if err != nil {
		return config, err
	}

	// .env is optional
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return config, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return config, nil
}

func loadFile(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Create default config file
		if err := SaveConfig(config, path); err != nil {
			return config, err
		}
		return config, nil
	}

	// Read config file
	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return err
	}

	return nil
}
