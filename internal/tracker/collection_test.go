package tracker

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/erwar/bookbuddy/internal/book"
)

func dune() book.Book {
	return book.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi", Status: book.StatusReading, Progress: 40}
}

func loaded(t *testing.T, books ...book.Book) (*Tracker, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend(books...)
	tr := New(backend, &fakeLookup{})
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tr, backend
}

func TestListIsIdempotent(t *testing.T) {
	tr, _ := loaded(t, dune(), book.Book{ID: 2, Title: "Emma", Status: book.StatusWishlist})
	first := tr.State.Books()

	if err := tr.Collection.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
	if second := tr.State.Books(); !reflect.DeepEqual(first, second) {
		t.Errorf("repeated list changed snapshot:\n%v\n%v", first, second)
	}
	if first[0].ID != 1 || first[1].ID != 2 {
		t.Errorf("snapshot not in server order: %v", first)
	}
}

func TestListFailureKeepsSnapshot(t *testing.T) {
	tr, backend := loaded(t, dune())
	backend.setFail("list", errOffline)

	err := tr.Collection.List(context.Background())
	var netErr *book.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if books := tr.State.Books(); len(books) != 1 || books[0].Title != "Dune" {
		t.Errorf("snapshot changed on failed list: %v", books)
	}
}

func TestOverlappingListsKeepNewest(t *testing.T) {
	tr, backend := loaded(t, dune())

	entered := make(chan struct{})
	release := make(chan struct{})
	backend.listHook = func(call int) {
		if call == 2 {
			close(entered)
			<-release
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tr.Collection.List(context.Background())
	}()
	<-entered

	// The blocked fetch already holds the one-book list.
	backend.CreateBook(context.Background(), book.Draft{Title: "Emma", Status: book.StatusWishlist})
	if err := tr.Collection.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}

	close(release)
	wg.Wait()

	if books := tr.State.Books(); len(books) != 2 {
		t.Errorf("stale list overwrote newer snapshot: %v", books)
	}
}

func TestCreateRefreshesAndResetsDraft(t *testing.T) {
	tr, backend := loaded(t, dune())
	ctx := context.Background()

	before, _ := tr.Stats.Current()
	tr.Draft.Edit(func(d *book.Draft) {
		d.Title = "Emma"
		d.Author = "Jane Austen"
		d.Genre = "Classic"
		d.Progress = 10
	})

	created, err := tr.Collection.Create(ctx, tr.Draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Error("created book has no id")
	}

	after, _ := tr.Stats.Current()
	if after.Total != before.Total+1 {
		t.Errorf("stats total = %d, want %d", after.Total, before.Total+1)
	}
	if got := tr.Draft.Draft(); got != book.DefaultDraft() {
		t.Errorf("draft not reset: %+v", got)
	}
	if len(tr.State.Books()) != 2 {
		t.Errorf("snapshot not refreshed after create")
	}
	if backend.count("list") != 2 || backend.count("stats") != 2 {
		t.Errorf("list=%d stats=%d, want 2 each", backend.count("list"), backend.count("stats"))
	}
}

func TestCreateFailureKeepsDraft(t *testing.T) {
	tr, backend := loaded(t)
	backend.setFail("create", errOffline)
	tr.Draft.Edit(func(d *book.Draft) { d.Title = "Emma" })

	if _, err := tr.Collection.Create(context.Background(), tr.Draft); err == nil {
		t.Fatal("expected error")
	}
	if tr.Draft.Draft().Title != "Emma" {
		t.Error("draft lost after failed create")
	}
	if len(tr.State.Books()) != 0 {
		t.Error("failed create appeared in the snapshot")
	}
}

func TestCreateValidatesBeforeDispatch(t *testing.T) {
	tr, backend := loaded(t)
	tr.Draft.Edit(func(d *book.Draft) { d.Progress = 140 })

	_, err := tr.Collection.Create(context.Background(), tr.Draft)
	if !book.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.count("create") != 0 {
		t.Error("invalid draft was sent")
	}
}

func TestUpdateRatingKeepsProgress(t *testing.T) {
	tr, _ := loaded(t, dune())
	ctx := context.Background()

	rating := 5
	if err := tr.Collection.Update(ctx, 1, book.Patch{Rating: &rating}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := tr.Collection.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}

	b, _ := tr.State.Book(1)
	if b.Rating != 5 || b.Progress != 40 {
		t.Errorf("book = %+v, want rating 5 progress 40", b)
	}
}

func TestUpdateFailureLeavesSnapshot(t *testing.T) {
	tr, backend := loaded(t, dune())
	backend.setFail("update", errOffline)

	progress := 90
	if err := tr.Collection.Update(context.Background(), 1, book.Patch{Progress: &progress}); err == nil {
		t.Fatal("expected error")
	}
	if b, _ := tr.State.Book(1); b.Progress != 40 {
		t.Errorf("progress = %d after failed update", b.Progress)
	}
}

func TestSetProgressValidates(t *testing.T) {
	tr, backend := loaded(t, dune())

	if err := tr.Collection.SetProgress(context.Background(), 1, 101); !book.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.count("update") != 0 {
		t.Error("out-of-range progress was sent")
	}

	if err := tr.Collection.SetStatus(context.Background(), 1, book.StatusCompleted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	stats, _ := tr.Stats.Current()
	if stats.Completed != 1 || stats.PercentCompleted != 100 {
		t.Errorf("stats after completing = %+v", stats)
	}
}

func TestRemoveRequiresConfirmation(t *testing.T) {
	tr, backend := loaded(t, dune(), book.Book{ID: 3, Title: "Ubik", Status: book.StatusReading})
	ctx := context.Background()

	if err := tr.Collection.Remove(ctx, 3, nil); !errors.Is(err, book.ErrNotConfirmed) {
		t.Errorf("nil confirmer: got %v", err)
	}

	var asked string
	decline := ConfirmFunc(func(b book.Book) bool {
		asked = b.Title
		return false
	})
	if err := tr.Collection.Remove(ctx, 3, decline); !errors.Is(err, book.ErrNotConfirmed) {
		t.Errorf("declined: got %v", err)
	}
	if asked != "Ubik" {
		t.Errorf("confirmer saw %q, want Ubik", asked)
	}
	if backend.count("delete") != 0 {
		t.Fatal("DELETE sent without confirmation")
	}

	accept := ConfirmFunc(func(book.Book) bool { return true })
	if err := tr.Collection.Remove(ctx, 3, accept); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := tr.State.Book(3); ok {
		t.Error("book still in snapshot after delete")
	}
	if stats, _ := tr.Stats.Current(); stats.Total != 1 {
		t.Errorf("stats total = %d, want 1", stats.Total)
	}
}

func TestSaveNote(t *testing.T) {
	b := dune()
	b.Rating = 4
	tr, backend := loaded(t, b)
	ctx := context.Background()

	if err := tr.Collection.EditNote(1, "Spice must flow"); err != nil {
		t.Fatalf("EditNote: %v", err)
	}
	if note := tr.State.Note(1); note != "Spice must flow" {
		t.Errorf("effective note = %q", note)
	}

	// An unrelated refresh must not drop the unsaved edit.
	tr.Collection.List(ctx)
	if v, _ := tr.View(1); !v.HasDraftNote || v.EditorText() != "Spice must flow" {
		t.Errorf("draft note lost on refresh: %+v", v)
	}

	if err := tr.Collection.SaveNote(ctx, 1); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	v, _ := tr.View(1)
	if v.HasDraftNote {
		t.Error("draft note not cleared after save")
	}
	if v.Book.Notes != "Spice must flow" || v.Book.Rating != 4 {
		t.Errorf("saved book = %+v", v.Book)
	}
	if v.DisplaySummary() != "Spice must flow" {
		t.Errorf("display summary = %q", v.DisplaySummary())
	}
	if backend.count("update") != 1 {
		t.Errorf("update calls = %d", backend.count("update"))
	}
}

func TestSaveNoteFailureKeepsDraft(t *testing.T) {
	tr, backend := loaded(t, dune())
	tr.Collection.EditNote(1, "unsaved")
	backend.setFail("update", errOffline)

	if err := tr.Collection.SaveNote(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if note, ok := tr.State.DraftNote(1); !ok || note != "unsaved" {
		t.Errorf("draft note = %q, %v", note, ok)
	}
}

func TestStatsEmptyCollection(t *testing.T) {
	tr, _ := loaded(t)
	stats, ok := tr.Stats.Current()
	if !ok {
		t.Fatal("stats not loaded")
	}
	if stats.Total != 0 || stats.PercentCompleted != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}

func TestStatsFailureKeepsPrevious(t *testing.T) {
	tr, backend := loaded(t, dune())
	backend.setFail("stats", errOffline)

	if err := tr.Stats.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if stats, _ := tr.Stats.Current(); stats.Total != 1 {
		t.Errorf("stats lost after failed refresh: %+v", stats)
	}
}
