package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/erwar/bookbuddy/internal/book"
)

// DraftForm holds the pending new-book draft. Fields are validated only when
// the draft is submitted through Collection.Create.
type DraftForm struct {
	lookup ISBNLookup

	mu    sync.Mutex
	draft book.Draft
}

func NewDraftForm(lookup ISBNLookup) *DraftForm {
	return &DraftForm{
		lookup: lookup,
		draft:  book.DefaultDraft(),
	}
}

func (f *DraftForm) Draft() book.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Edit applies fn to the draft atomically.
func (f *DraftForm) Edit(fn func(d *book.Draft)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.draft)
}

func (f *DraftForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = book.DefaultDraft()
}

// Autofill looks up the draft's ISBN and merges the title and authors into
// the draft. Values present on the external record win; absent ones leave
// the draft as is. On any failure the draft is unchanged.
func (f *DraftForm) Autofill(ctx context.Context) error {
	isbn := strings.TrimSpace(f.Draft().ISBN)
	if isbn == "" {
		return &book.ValidationError{Field: "isbn", Message: "Please enter an ISBN"}
	}
	if f.lookup == nil {
		return fmt.Errorf("autofill: no ISBN lookup configured")
	}

	ed, err := f.lookup.FetchByISBN(ctx, isbn)
	if err != nil {
		return fmt.Errorf("book not found or invalid ISBN: %w", err)
	}

	f.Edit(func(d *book.Draft) {
		if ed.Title != "" {
			d.Title = ed.Title
		}
		if len(ed.Authors) > 0 {
			d.Author = strings.Join(ed.Authors, ", ")
		}
	})
	return nil
}
