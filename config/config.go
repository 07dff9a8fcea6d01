package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultDatabaseFile = "memes.sqlite"
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 5000
)

const (
	defaultPerPage       = 20
	defaultMaxPerPage    = 100
	defaultMaxImageBytes = 16 << 20
)

const (
	TagSearchExact     = "exact"
	TagSearchSubstring = "substring"
)

type Config struct {
	// database file
	DatabasePath string

	// http listener
	Host string
	Port int

	// allowed CORS origins; "*" reflects any origin back
	AllowedOrigins []string

	// static frontend served at "/", disabled when empty
	FrontendDirectory string

	// pagination
	DefaultPerPage int
	MaxPerPage     int

	// upload limit for a single image blob
	MaxImageBytes int

	// gorm logger level: silent, error, warn or info
	DBLogLevel string

	// default tag filter semantics for search: exact or substring
	TagSearchMode string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", DefaultDatabaseFile)
	absDBPath, err := filepath.Abs(dbPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for database '%s': %w", dbPath, err)
	}

	frontend := getEnvOrDefault("FRONTEND_DIRECTORY", "")
	if frontend != "" {
		frontend, err = filepath.Abs(frontend)
		if err != nil {
			return Config{}, fmt.Errorf("failed to get absolute path for frontend directory: %w", err)
		}
	}

	defaultPer := getEnvIntOrDefault("DEFAULT_PER_PAGE", defaultPerPage)
	maxPer := getEnvIntOrDefault("MAX_PER_PAGE", defaultMaxPerPage)
	if defaultPer > maxPer {
		log.Printf("Warning: DEFAULT_PER_PAGE %d exceeds MAX_PER_PAGE %d. Clamping.", defaultPer, maxPer)
		defaultPer = maxPer
	}

	dbLogLevel := strings.ToLower(getEnvOrDefault("DB_LOG_LEVEL", "warn"))
	switch dbLogLevel {
	case "silent", "error", "warn", "info":
	default:
		return Config{}, fmt.Errorf("invalid DB_LOG_LEVEL '%s': want silent, error, warn or info", dbLogLevel)
	}

	searchMode := strings.ToLower(getEnvOrDefault("TAG_SEARCH_MODE", TagSearchExact))
	if searchMode != TagSearchExact && searchMode != TagSearchSubstring {
		return Config{}, fmt.Errorf("invalid TAG_SEARCH_MODE '%s': want %s or %s", searchMode, TagSearchExact, TagSearchSubstring)
	}

	cfg := Config{
		DatabasePath:      absDBPath,
		Host:              getEnvOrDefault("HOST", DefaultHost),
		Port:              getEnvIntOrDefault("PORT", DefaultPort),
		AllowedOrigins:    splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		FrontendDirectory: frontend,
		DefaultPerPage:    defaultPer,
		MaxPerPage:        maxPer,
		MaxImageBytes:     getEnvIntOrDefault("MAX_IMAGE_BYTES", defaultMaxImageBytes),
		DBLogLevel:        dbLogLevel,
		TagSearchMode:     searchMode,
	}

	return cfg, nil
}
