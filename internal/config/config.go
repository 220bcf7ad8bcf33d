package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL         string // backend the CLI talks to
	ISBNLookupURL  string
	DBPath         string
	Port           string
	OllamaURL      string
	OllamaModel    string
	GoogleBooksKey string
	CORSOrigins    []string // origins allowed to call the backend from a browser
}

// Load reads settings from the environment, after loading .env if present.
func Load() Config {
	_ = godotenv.Load()

	homeDir, _ := os.UserHomeDir()
	return Config{
		APIURL:         envOrDefault("BOOKBUDDY_API_URL", "http://localhost:5000"),
		ISBNLookupURL:  envOrDefault("ISBN_LOOKUP_URL", "https://openlibrary.org"),
		DBPath:         envOrDefault("BOOKBUDDY_DB", filepath.Join(homeDir, ".bookbuddy", "books.db")),
		Port:           envOrDefault("PORT", "5000"),
		OllamaURL:      envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:    envOrDefault("OLLAMA_MODEL", "llama3.2"),
		GoogleBooksKey: os.Getenv("GOOGLE_BOOKS_API_KEY"),
		CORSOrigins:    splitList(envOrDefault("CORS_ORIGINS", "http://localhost:3000")),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitList parses a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
