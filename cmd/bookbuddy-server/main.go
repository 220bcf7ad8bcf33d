package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/erwar/bookbuddy/internal/config"
	"github.com/erwar/bookbuddy/internal/llm"
	"github.com/erwar/bookbuddy/internal/scraper"
	"github.com/erwar/bookbuddy/internal/server"
	"github.com/erwar/bookbuddy/internal/storage"
)

func main() {
	cfg := config.Load()

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "path to SQLite database")
	ollamaURL := flag.String("ollama-url", cfg.OllamaURL, "Ollama API URL")
	ollamaModel := flag.String("ollama-model", cfg.OllamaModel, "Ollama generation model")
	flag.Parse()

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	repo, err := storage.NewSQLiteRepository(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repo.Close()

	writer := llm.NewOllamaClient(*ollamaURL, *ollamaModel)
	recommender := scraper.NewGoogleBooksClient("", cfg.GoogleBooksKey)
	if cfg.GoogleBooksKey == "" {
		log.Println("Warning: GOOGLE_BOOKS_API_KEY not set - recommendations use the anonymous quota")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", *port),
		Handler: handlers.CombinedLoggingHandler(os.Stdout,
			server.WithCORS(server.NewServer(repo, writer, recommender), cfg.CORSOrigins)),
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting Book Buddy backend on http://localhost%s", srv.Addr)
		log.Printf("Database: %s", *dbPath)
		log.Printf("CORS origins: %s", strings.Join(cfg.CORSOrigins, ", "))
		log.Printf("Ollama: %s (model %s)", *ollamaURL, writer.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
