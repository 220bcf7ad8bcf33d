package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erwar/bookbuddy/internal/book"
)

// Confirmer guards destructive actions.
type Confirmer interface {
	Confirm(b book.Book) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(b book.Book) bool

func (f ConfirmFunc) Confirm(b book.Book) bool {
	return f(b)
}

// Collection is the authoritative client cache of the book list. Every
// successful mutation is followed by a full re-fetch; local writes are never
// trusted over the server.
type Collection struct {
	state   *State
	backend Backend
	stats   *StatsAggregator

	mu       sync.Mutex
	onRemove []func(id int64)
}

func NewCollection(state *State, backend Backend, stats *StatsAggregator) *Collection {
	return &Collection{
		state:   state,
		backend: backend,
		stats:   stats,
	}
}

// OnRemove registers fn to run after a book is deleted on the backend.
func (c *Collection) OnRemove(fn func(id int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRemove = append(c.onRemove, fn)
}

// List replaces the snapshot with the backend's. On failure the previous
// snapshot is kept.
func (c *Collection) List(ctx context.Context) error {
	seq := c.state.beginList()

	books, err := c.backend.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []book.Book{}
	}

	c.state.replaceBooks(seq, books)
	return nil
}

// Create submits the form's draft. On success the collection and stats are
// re-fetched and the form is reset; on failure the draft is left for retry.
// A non-nil book with a non-nil error means the book was created but the
// follow-up refresh failed.
func (c *Collection) Create(ctx context.Context, form *DraftForm) (*book.Book, error) {
	d := form.Draft()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	created, err := c.backend.CreateBook(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	form.Reset()
	return created, c.refresh(ctx)
}

// Update sends a partial update and re-synchronises from the backend.
func (c *Collection) Update(ctx context.Context, id int64, p book.Patch) error {
	if p.IsEmpty() {
		return &book.ValidationError{Field: "patch", Message: "nothing to update"}
	}
	if p.Progress != nil && (*p.Progress < 0 || *p.Progress > 100) {
		return &book.ValidationError{Field: "progress", Message: "progress must be between 0 and 100"}
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return &book.ValidationError{Field: "rating", Message: "rating must be between 0 and 5"}
	}
	if p.Status != nil && !p.Status.IsValid() {
		return &book.ValidationError{Field: "status", Message: fmt.Sprintf("invalid status: %s", *p.Status)}
	}

	if err := c.backend.UpdateBook(ctx, id, p); err != nil {
		return fmt.Errorf("update book %d: %w", id, err)
	}
	return c.refresh(ctx)
}

// Remove deletes a book after confirm approves it. A nil confirm, or one
// that declines, returns book.ErrNotConfirmed without contacting the backend.
func (c *Collection) Remove(ctx context.Context, id int64, confirm Confirmer) error {
	b, ok := c.state.Book(id)
	if !ok {
		b = book.Book{ID: id}
	}
	if confirm == nil || !confirm.Confirm(b) {
		return book.ErrNotConfirmed
	}

	if err := c.backend.DeleteBook(ctx, id); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}

	c.state.markRemoved(id)
	c.mu.Lock()
	hooks := append([]func(int64){}, c.onRemove...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(id)
	}

	return c.refresh(ctx)
}

// EditNote records an unsaved edit of the book's note.
func (c *Collection) EditNote(id int64, text string) error {
	if _, ok := c.state.Book(id); !ok || c.state.Removed(id) {
		return &book.NotFoundError{Resource: "book", Key: fmt.Sprint(id)}
	}
	c.state.setDraftNote(id, text)
	return nil
}

// SaveNote persists the unsaved edit together with the current rating and
// clears the edit once the backend accepts it.
func (c *Collection) SaveNote(ctx context.Context, id int64) error {
	b, ok := c.state.Book(id)
	if !ok {
		return &book.NotFoundError{Resource: "book", Key: fmt.Sprint(id)}
	}
	note := c.state.Note(id)
	rating := b.Rating

	if err := c.backend.UpdateBook(ctx, id, book.Patch{Notes: &note, Rating: &rating}); err != nil {
		return fmt.Errorf("save note for book %d: %w", id, err)
	}

	c.state.clearDraftNote(id, note)
	return c.refresh(ctx)
}

// SetProgress updates reading progress (0-100).
func (c *Collection) SetProgress(ctx context.Context, id int64, progress int) error {
	return c.Update(ctx, id, book.Patch{Progress: &progress})
}

// SetStatus moves a book between reading, completed and wishlist.
func (c *Collection) SetStatus(ctx context.Context, id int64, status book.Status) error {
	return c.Update(ctx, id, book.Patch{Status: &status})
}

// refresh re-fetches both the list and the stats.
func (c *Collection) refresh(ctx context.Context) error {
	listErr := c.List(ctx)
	statsErr := c.stats.Refresh(ctx)
	return errors.Join(listErr, statsErr)
}
