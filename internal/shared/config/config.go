package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSubmitDelay    = 600 * time.Millisecond
	defaultSearchDebounce = 150 * time.Millisecond
	defaultWorkspaceIdle  = 15 * time.Minute
	defaultMaxWorkspaces  = 10000
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	StorageBackend  string
	LocalStoreDir   string
	DatabaseURL     string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	ValkeyAddr      string
	JWTSecret       string
	SubmitDelay     time.Duration
	SearchDebounce  time.Duration
	WorkspaceIdle   time.Duration
	MaxWorkspaces   int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	backend := normalizeBackend(getEnv("STORAGE_BACKEND", ""))
	dbURL := os.Getenv("DATABASE_URL")
	if backend == "" {
		backend = "local"
		if dbURL != "" {
			backend = "postgres"
		}
	}

	if env == "production" && backend == "memory" {
		log.Printf("STORAGE_BACKEND=memory loses every resume on restart; not suitable for production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,
		StorageBackend:  backend,
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		DatabaseURL:     dbURL,
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", "resume-builder/"),
		ValkeyAddr:      getEnv("VALKEY_ADDR", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		SubmitDelay:     getDuration("SUBMIT_DELAY", defaultSubmitDelay),
		SearchDebounce:  getDuration("SEARCH_DEBOUNCE", defaultSearchDebounce),
		WorkspaceIdle:   getDuration("WORKSPACE_IDLE_TTL", defaultWorkspaceIdle),
		MaxWorkspaces:   getInt("MAX_WORKSPACES", defaultMaxWorkspaces),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val < 0 {
		log.Printf("config: %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid integer %q, using %d", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

// normalizeBackend maps STORAGE_BACKEND aliases; empty means "pick from other settings".
// Unrecognised names pass through lowercased so storage setup can reject them.
func normalizeBackend(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "memory", "mem":
		return "memory"
	case "local", "file", "fs":
		return "local"
	case "postgres", "pg", "postgresql":
		return "postgres"
	case "s3":
		return "s3"
	case "valkey", "redis":
		return "valkey"
	default:
		return name
	}
}
