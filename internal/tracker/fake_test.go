package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erwar/bookbuddy/internal/book"
	"github.com/erwar/bookbuddy/internal/scraper"
)

var errOffline = errors.New("connection refused")

// fakeBackend is an in-memory Backend. Hooks run outside the lock so tests
// can block a call to control response order.
type fakeBackend struct {
	mu     sync.Mutex
	books  []book.Book
	nextID int64
	calls  map[string]int
	fail   map[string]error

	listHook      func(call int)
	updateHook    func(id int64)
	summarizeHook func(note string)
}

func newFakeBackend(books ...book.Book) *fakeBackend {
	f := &fakeBackend{
		calls:  make(map[string]int),
		fail:   make(map[string]error),
		nextID: 1,
	}
	for _, b := range books {
		if b.ID >= f.nextID {
			f.nextID = b.ID + 1
		}
		f.books = append(f.books, b)
	}
	return f
}

func (f *fakeBackend) record(op string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.calls[op], f.fail[op]
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeBackend) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) ListBooks(ctx context.Context) ([]book.Book, error) {
	call, err := f.record("list")
	if err != nil {
		return nil, &book.NetworkError{Op: "list books", Err: err}
	}

	f.mu.Lock()
	out := append([]book.Book(nil), f.books...)
	hook := f.listHook
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return out, nil
}

func (f *fakeBackend) CreateBook(ctx context.Context, d book.Draft) (*book.Book, error) {
	if _, err := f.record("create"); err != nil {
		return nil, &book.NetworkError{Op: "create book", Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	b := book.Book{
		ID:        f.nextID,
		ISBN:      d.ISBN,
		Title:     d.Title,
		Author:    d.Author,
		Genre:     d.Genre,
		Status:    d.Status,
		Progress:  d.Progress,
		Rating:    d.Rating,
		DateAdded: book.NewDate(time.Now()),
	}
	f.nextID++
	f.books = append(f.books, b)
	return &b, nil
}

func (f *fakeBackend) UpdateBook(ctx context.Context, id int64, p book.Patch) error {
	if _, err := f.record("update"); err != nil {
		return &book.NetworkError{Op: "update book", Err: err}
	}

	f.mu.Lock()
	hook := f.updateHook
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.books {
		if f.books[i].ID == id {
			p.Apply(&f.books[i])
			return nil
		}
	}
	return &book.NetworkError{Op: "update book", StatusCode: 404}
}

func (f *fakeBackend) DeleteBook(ctx context.Context, id int64) error {
	if _, err := f.record("delete"); err != nil {
		return &book.NetworkError{Op: "delete book", Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.books {
		if f.books[i].ID == id {
			f.books = append(f.books[:i], f.books[i+1:]...)
			return nil
		}
	}
	return &book.NetworkError{Op: "delete book", StatusCode: 404}
}

func (f *fakeBackend) Stats(ctx context.Context) (*book.Stats, error) {
	if _, err := f.record("stats"); err != nil {
		return nil, &book.NetworkError{Op: "get stats", Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s := &book.Stats{Total: len(f.books), BooksByGenre: map[string]int{}}
	for _, b := range f.books {
		if b.Status == book.StatusCompleted {
			s.Completed++
		}
		s.BooksByGenre[b.Genre]++
	}
	s.PercentCompleted = book.PercentCompleted(s.Completed, s.Total)
	return s, nil
}

func (f *fakeBackend) Summarize(ctx context.Context, note string) (string, error) {
	if _, err := f.record("summarize"); err != nil {
		return "", &book.NetworkError{Op: "summarize", Err: err}
	}

	f.mu.Lock()
	hook := f.summarizeHook
	f.mu.Unlock()
	if hook != nil {
		hook(note)
	}

	if note == "Great book" {
		return "A great read.", nil
	}
	return "S:" + note, nil
}

func (f *fakeBackend) Review(ctx context.Context, note string, rating int) (string, error) {
	if _, err := f.record("review"); err != nil {
		return "", &book.NetworkError{Op: "review", Err: err}
	}
	return "review of " + note, nil
}

func (f *fakeBackend) Recommend(ctx context.Context, id int64) ([]book.Recommendation, error) {
	if _, err := f.record("recommend"); err != nil {
		return nil, &book.NetworkError{Op: "recommend", Err: err}
	}
	return []book.Recommendation{{ID: "v1", Title: "Hyperion", Author: "Dan Simmons"}}, nil
}

type fakeLookup struct {
	mu      sync.Mutex
	calls   int
	edition *scraper.Edition
	err     error
}

func (l *fakeLookup) FetchByISBN(ctx context.Context, isbn string) (*scraper.Edition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.edition, nil
}
