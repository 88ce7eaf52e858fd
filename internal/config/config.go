package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds runtime settings for the server.
type Config struct {
	ServerAddr   string
	ArtifactDir  string
	DatabasePath string
	FetchdURL    string
	DBPoolSize   int
}

// Load reads environment variables and returns normalized runtime config.
func Load() Config {
	return Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		ArtifactDir:  getEnv("ARTIFACT_DIR", "./temp_downloads"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/tubegate.db"),
		FetchdURL:    getEnv("FETCHD_URL", "http://localhost:8000"),
		DBPoolSize:   getEnvInt("DB_POOL_SIZE", 4),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}
