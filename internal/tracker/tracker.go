// Package tracker holds the client-side state of a reading collection and
// coordinates every round-trip to the backend: collection CRUD, stats,
// the new-book draft with ISBN autofill, optimistic ratings, and the three
// per-book enrichment pipelines (summary, review, recommendations).
//
// All methods are safe for concurrent use. Blocking methods take a context
// and may overlap freely, including repeated calls for the same book.
package tracker

import (
	"context"
	"fmt"

	"github.com/erwar/bookbuddy/internal/book"
	"github.com/erwar/bookbuddy/internal/scraper"
)

// Backend is the REST service the tracker mirrors. *api.Client implements it.
type Backend interface {
	ListBooks(ctx context.Context) ([]book.Book, error)
	CreateBook(ctx context.Context, d book.Draft) (*book.Book, error)
	UpdateBook(ctx context.Context, id int64, p book.Patch) error
	DeleteBook(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*book.Stats, error)
	Summarize(ctx context.Context, note string) (string, error)
	Review(ctx context.Context, note string, rating int) (string, error)
	Recommend(ctx context.Context, id int64) ([]book.Recommendation, error)
}

// ISBNLookup resolves an ISBN to edition metadata.
// *scraper.OpenLibraryClient implements it.
type ISBNLookup interface {
	FetchByISBN(ctx context.Context, isbn string) (*scraper.Edition, error)
}

type Tracker struct {
	State      *State
	Collection *Collection
	Stats      *StatsAggregator
	Draft      *DraftForm
	Enrichment *Enrichment
	Ratings    *RatingSync
}

func New(backend Backend, lookup ISBNLookup) *Tracker {
	state := NewState()
	stats := NewStatsAggregator(state, backend)
	enrichment := NewEnrichment(state, backend)
	collection := NewCollection(state, backend, stats)
	collection.OnRemove(enrichment.Forget)

	return &Tracker{
		State:      state,
		Collection: collection,
		Stats:      stats,
		Draft:      NewDraftForm(lookup),
		Enrichment: enrichment,
		Ratings:    NewRatingSync(state, backend, collection),
	}
}

// Load fetches the collection and the stats, as on first open.
func (t *Tracker) Load(ctx context.Context) error {
	if err := t.Collection.List(ctx); err != nil {
		return err
	}
	return t.Stats.Refresh(ctx)
}

// BookView is everything the presentation layer shows for one book.
type BookView struct {
	Book            book.Book
	DraftNote       string
	HasDraftNote    bool
	Summary         string // generated, unsaved
	Review          string
	Recommendations []book.Recommendation
}

// DisplaySummary is the generated summary, falling back to the saved note.
func (v BookView) DisplaySummary() string {
	switch {
	case v.Summary != "":
		return v.Summary
	case v.Book.Notes != "":
		return v.Book.Notes
	}
	return "No notes yet."
}

// EditorText is what the note editor shows: the unsaved edit if any.
func (v BookView) EditorText() string {
	if v.HasDraftNote {
		return v.DraftNote
	}
	return v.Book.Notes
}

func (t *Tracker) View(id int64) (BookView, error) {
	b, ok := t.State.Book(id)
	if !ok {
		return BookView{}, &book.NotFoundError{Resource: "book", Key: fmt.Sprint(id)}
	}
	return t.view(b), nil
}

// Views resolves every book in the snapshot, in server order.
func (t *Tracker) Views() []BookView {
	books := t.State.Books()
	views := make([]BookView, 0, len(books))
	for _, b := range books {
		views = append(views, t.view(b))
	}
	return views
}

func (t *Tracker) view(b book.Book) BookView {
	v := BookView{Book: b}
	v.DraftNote, v.HasDraftNote = t.State.DraftNote(b.ID)
	v.Summary, _ = t.Enrichment.CachedSummary(b.ID)
	v.Review, _ = t.Enrichment.CachedReview(b.ID)
	v.Recommendations, _ = t.Enrichment.CachedRecommendations(b.ID)
	return v
}
