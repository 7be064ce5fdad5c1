// Package config loads the JSON key/path configuration that drives the
// whole pipeline. An optional .env file is loaded into the process
// environment first; no config value is read from the environment.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Paths groups the on-disk locations the pipeline reads from and writes to.
type Paths struct {
	Meta   string `json:"meta"`
	Master string `json:"master"`
	Dat    string `json:"dat"`
	Output string `json:"output"`
}

// Config is the flat JSON document described in spec §6.
type Config struct {
	DBBaseKeyHex      string `json:"DB_BASE_KEY_HEX"`
	DBKeyJPHex        string `json:"DB_KEY_JP_HEX"`
	ABKeyHex          string `json:"AB_KEY_HEX"`
	HeaderSize        int    `json:"HEADER_SIZE"`
	UmaHCAKey         string `json:"UMA_HCA_KEY"`
	ExposeStressMode  bool   `json:"EXPOSE_STRESS_MODE"`
	Paths             Paths  `json:"PATHS"`

	// Decoded forms, populated by Load after JSON parsing.
	BaseKey   []byte `json:"-"`
	RawKeyJP  []byte `json:"-"`
	ABKey     []byte `json:"-"`
}

// Load reads and decodes the JSON config at path, after loading an
// optional .env file from the current working directory into the
// process environment. Missing .env is a warning, not a fatal error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.BaseKey, err = hex.DecodeString(cfg.DBBaseKeyHex); err != nil {
		return nil, fmt.Errorf("invalid DB_BASE_KEY_HEX: %w", err)
	}
	if cfg.RawKeyJP, err = hex.DecodeString(cfg.DBKeyJPHex); err != nil {
		return nil, fmt.Errorf("invalid DB_KEY_JP_HEX: %w", err)
	}
	if cfg.ABKey, err = hex.DecodeString(cfg.ABKeyHex); err != nil {
		return nil, fmt.Errorf("invalid AB_KEY_HEX: %w", err)
	}
	if cfg.HeaderSize <= 0 {
		cfg.HeaderSize = 256
	}

	if err := os.MkdirAll(cfg.Paths.Output, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", cfg.Paths.Output, err)
	}

	return &cfg, nil
}
