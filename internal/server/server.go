// Package server is a reference implementation of the Book Buddy backend:
// book CRUD and stats over SQLite, note summaries and reviews through an
// LLM, and genre recommendations from Google Books.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/erwar/bookbuddy/internal/book"
	"github.com/erwar/bookbuddy/internal/storage"
)

const (
	minSummaryLength = 250
	minReviewLength  = 100
	maxRecommended   = 5
)

type Repository interface {
	Create(ctx context.Context, b *book.Book) error
	GetByID(ctx context.Context, id int64) (*book.Book, error)
	GetAll(ctx context.Context) ([]book.Book, error)
	Update(ctx context.Context, id int64, p book.Patch) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*book.Stats, error)
}

type Writer interface {
	Summarize(ctx context.Context, note string) (string, error)
	Review(ctx context.Context, note string, rating int) (string, error)
}

type Recommender interface {
	SearchBySubject(ctx context.Context, subject string, limit int) ([]book.Recommendation, error)
}

type Server struct {
	repo        Repository
	writer      Writer
	recommender Recommender
	router      *mux.Router
}

func NewServer(repo Repository, writer Writer, recommender Recommender) *Server {
	s := &Server{
		repo:        repo,
		writer:      writer,
		recommender: recommender,
		router:      mux.NewRouter(),
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// WithCORS lets browser frontends served from origins call h.
func WithCORS(h http.Handler, origins []string) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
	)(h)
}

func (s *Server) routes() {
	s.router.HandleFunc("/books", s.handleListBooks).Methods(http.MethodGet)
	s.router.HandleFunc("/books", s.handleAddBook).Methods(http.MethodPost)
	s.router.HandleFunc("/books/{id:[0-9]+}", s.handleUpdateBook).Methods(http.MethodPut)
	s.router.HandleFunc("/books/{id:[0-9]+}", s.handleDeleteBook).Methods(http.MethodDelete)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/summarize", s.handleSummarize).Methods(http.MethodPost)
	s.router.HandleFunc("/review", s.handleReview).Methods(http.MethodPost)
	s.router.HandleFunc("/recommend/{id:[0-9]+}", s.handleRecommend).Methods(http.MethodGet)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.repo.GetAll(r.Context())
	if err != nil {
		log.Printf("list books: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	d := book.DefaultDraft()
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if d.Status == "" {
		d.Status = book.StatusReading
	}
	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := &book.Book{
		ISBN:      d.ISBN,
		Title:     d.Title,
		Author:    d.Author,
		Genre:     d.Genre,
		Status:    d.Status,
		Progress:  d.Progress,
		Rating:    d.Rating,
		DateAdded: book.NewDate(time.Now().UTC()),
	}

	if err := s.repo.Create(r.Context(), b); err != nil {
		log.Printf("create book: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to add book")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	var p book.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validatePatch(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.repo.Update(r.Context(), id, p)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	if err != nil {
		log.Printf("update book %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update book")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book updated"})
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	err := s.repo.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	if err != nil {
		log.Printf("delete book %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete book")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.Stats(r.Context())
	if err != nil {
		log.Printf("stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	note := strings.TrimSpace(req.Note)
	if note == "" {
		writeError(w, http.StatusBadRequest, "Empty note")
		return
	}

	if len(note) < minSummaryLength {
		writeJSON(w, http.StatusOK, map[string]string{
			"summary": "Note too short for AI summarization. Here's the original: " + note,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	summary, err := s.writer.Summarize(ctx, note)
	if err != nil {
		log.Printf("summarize: %v", err)
		writeError(w, http.StatusInternalServerError, "Summary generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note   string `json:"note"`
		Rating *int   `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	note := strings.TrimSpace(req.Note)
	if note == "" || req.Rating == nil || *req.Rating == 0 {
		writeError(w, http.StatusBadRequest, "Note and rating are required")
		return
	}
	if *req.Rating < 1 || *req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	if len(note) < minReviewLength {
		writeJSON(w, http.StatusOK, map[string]string{
			"review": "Note too short to generate a meaningful review.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	review, err := s.writer.Review(ctx, note, *req.Rating)
	if err != nil {
		log.Printf("review: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"review": review})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	b, err := s.repo.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	if err != nil {
		log.Printf("recommend %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Recommendation failed")
		return
	}

	recs, err := s.recommender.SearchBySubject(r.Context(), b.Genre, maxRecommended)
	if err != nil {
		log.Printf("recommend %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Recommendation failed")
		return
	}
	if recs == nil {
		recs = []book.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Book not found")
		return 0, false
	}
	return id, true
}

func validatePatch(p book.Patch) error {
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return errors.New("rating must be between 0 and 5")
	}
	if p.Progress != nil && (*p.Progress < 0 || *p.Progress > 100) {
		return errors.New("progress must be between 0 and 100")
	}
	if p.Status != nil && !p.Status.IsValid() {
		return errors.New("invalid status")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
