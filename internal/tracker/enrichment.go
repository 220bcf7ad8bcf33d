package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/erwar/bookbuddy/internal/book"
)

const (
	PipelineSummary         = "summary"
	PipelineReview          = "review"
	PipelineRecommendations = "recommendations"
)

// pipeline caches one kind of enrichment result per book.
//
// Every dispatch takes the next sequence number for its book. A response is
// stored only if it is newer than the last one stored, so a slow early
// request cannot overwrite the result of a later one.
type pipeline[T any] struct {
	mu      sync.Mutex
	issued  map[int64]uint64
	applied map[int64]uint64
	pending map[int64]int
	results map[int64]T
}

func newPipeline[T any]() *pipeline[T] {
	return &pipeline[T]{
		issued:  make(map[int64]uint64),
		applied: make(map[int64]uint64),
		pending: make(map[int64]int),
		results: make(map[int64]T),
	}
}

func (p *pipeline[T]) begin(id int64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued[id]++
	p.pending[id]++
	return p.issued[id]
}

// end marks one request for id as finished, whatever its outcome.
func (p *pipeline[T]) end(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[id]--; p.pending[id] <= 0 {
		delete(p.pending, id)
	}
}

// resolve stores v for id unless a newer response is already stored.
func (p *pipeline[T]) resolve(id int64, seq uint64, v T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq <= p.applied[id] {
		return false
	}
	p.applied[id] = seq
	p.results[id] = v
	return true
}

func (p *pipeline[T]) get(id int64) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.results[id]
	return v, ok
}

func (p *pipeline[T]) inFlight(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending[id] > 0
}

// forget drops the entry for id and retires every request already issued
// for it, so late responses are discarded too.
func (p *pipeline[T]) forget(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.results, id)
	p.applied[id] = p.issued[id]
}

// Enrichment runs the summary, review and recommendation pipelines. Results
// live only in memory and never touch the book snapshot; the summary is
// shown but not saved.
type Enrichment struct {
	state   *State
	backend Backend

	summaries       *pipeline[string]
	reviews         *pipeline[string]
	recommendations *pipeline[[]book.Recommendation]
}

func NewEnrichment(state *State, backend Backend) *Enrichment {
	return &Enrichment{
		state:           state,
		backend:         backend,
		summaries:       newPipeline[string](),
		reviews:         newPipeline[string](),
		recommendations: newPipeline[[]book.Recommendation](),
	}
}

// Summarize generates a summary of the book's current note.
func (e *Enrichment) Summarize(ctx context.Context, id int64) (string, error) {
	note, err := e.note(id, "Please write a note before generating a summary.")
	if err != nil {
		return "", err
	}

	seq := e.summaries.begin(id)
	defer e.summaries.end(id)

	summary, err := e.backend.Summarize(ctx, note)
	if err != nil {
		return "", fmt.Errorf("generate summary for book %d: %w", id, err)
	}

	e.store(id, func() { e.summaries.resolve(id, seq, summary) })
	return summary, nil
}

// Review generates a review from the book's current note and rating.
func (e *Enrichment) Review(ctx context.Context, id int64) (string, error) {
	const msg = "Both note and rating are required to generate a review."

	note, err := e.note(id, msg)
	if err != nil {
		return "", err
	}
	b, _ := e.state.Book(id)
	if b.Rating == 0 {
		return "", &book.ValidationError{Field: "rating", Message: msg}
	}

	seq := e.reviews.begin(id)
	defer e.reviews.end(id)

	review, err := e.backend.Review(ctx, note, b.Rating)
	if err != nil {
		return "", fmt.Errorf("generate review for book %d: %w", id, err)
	}

	e.store(id, func() { e.reviews.resolve(id, seq, review) })
	return review, nil
}

// Recommend fetches books similar to id.
func (e *Enrichment) Recommend(ctx context.Context, id int64) ([]book.Recommendation, error) {
	if _, err := e.note(id, "Please write a note before asking for recommendations."); err != nil {
		return nil, err
	}

	seq := e.recommendations.begin(id)
	defer e.recommendations.end(id)

	recs, err := e.backend.Recommend(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch recommendations for book %d: %w", id, err)
	}
	if recs == nil {
		recs = []book.Recommendation{}
	}

	e.store(id, func() { e.recommendations.resolve(id, seq, recs) })
	return append([]book.Recommendation(nil), recs...), nil
}

// CachedSummary returns the stored summary for id.
func (e *Enrichment) CachedSummary(id int64) (string, bool) {
	return e.summaries.get(id)
}

func (e *Enrichment) CachedReview(id int64) (string, bool) {
	return e.reviews.get(id)
}

func (e *Enrichment) CachedRecommendations(id int64) ([]book.Recommendation, bool) {
	recs, ok := e.recommendations.get(id)
	if !ok {
		return nil, false
	}
	return append([]book.Recommendation(nil), recs...), true
}

// Pending reports whether the named pipeline has a request for id in flight.
func (e *Enrichment) Pending(name string, id int64) bool {
	switch name {
	case PipelineSummary:
		return e.summaries.inFlight(id)
	case PipelineReview:
		return e.reviews.inFlight(id)
	case PipelineRecommendations:
		return e.recommendations.inFlight(id)
	}
	return false
}

// Forget drops every cached result for id.
func (e *Enrichment) Forget(id int64) {
	e.summaries.forget(id)
	e.reviews.forget(id)
	e.recommendations.forget(id)
}

// store runs resolve unless id was deleted while the request was in flight.
func (e *Enrichment) store(id int64, resolve func()) {
	if e.state.Removed(id) {
		return
	}
	resolve()
}

func (e *Enrichment) note(id int64, msg string) (string, error) {
	if _, ok := e.state.Book(id); !ok || e.state.Removed(id) {
		return "", &book.NotFoundError{Resource: "book", Key: fmt.Sprint(id)}
	}
	note := strings.TrimSpace(e.state.Note(id))
	if note == "" {
		return "", &book.ValidationError{Field: "note", Message: msg}
	}
	return note, nil
}
