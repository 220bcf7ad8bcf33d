package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"BOOKBUDDY_API_URL", "ISBN_LOOKUP_URL", "PORT", "OLLAMA_MODEL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.APIURL != "http://localhost:5000" {
		t.Errorf("APIURL = %s", cfg.APIURL)
	}
	if cfg.ISBNLookupURL != "https://openlibrary.org" {
		t.Errorf("ISBNLookupURL = %s", cfg.ISBNLookupURL)
	}
	if cfg.Port != "5000" || cfg.OllamaModel != "llama3.2" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should default under the home directory")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOOKBUDDY_API_URL", "http://books.internal:8080")
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")

	cfg := Load()
	if cfg.APIURL != "http://books.internal:8080" || cfg.Port != "9000" {
		t.Errorf("env not honoured: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}
