package tracker

import (
	"sync"

	"github.com/erwar/bookbuddy/internal/book"
)

// State is the client-side view shared by every component: the current
// collection snapshot, the last fetched stats and the per-book unsaved notes.
//
// Network calls never run under mu. A fetch takes a sequence number before
// dispatch and its result is applied only if no later fetch has already
// landed, so overlapping refreshes cannot roll the snapshot back.
type State struct {
	mu sync.Mutex

	books       []book.Book
	listIssued  uint64
	listApplied uint64

	stats        *book.Stats
	statsIssued  uint64
	statsApplied uint64

	draftNotes map[int64]string

	// removed holds ids deleted on the backend. They may still appear in
	// the snapshot until the follow-up list lands.
	removed map[int64]bool
}

func NewState() *State {
	return &State{
		draftNotes: make(map[int64]string),
		removed:    make(map[int64]bool),
	}
}

// Books returns a copy of the snapshot in server order.
func (s *State) Books() []book.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]book.Book, len(s.books))
	copy(out, s.books)
	return out
}

// Book returns the snapshot entry for id.
func (s *State) Book(id int64) (book.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return book.Book{}, false
	}
	return s.books[i], true
}

func (s *State) Stats() (book.Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stats == nil {
		return book.Stats{}, false
	}
	stats := *s.stats
	stats.BooksByGenre = make(map[string]int, len(s.stats.BooksByGenre))
	for genre, n := range s.stats.BooksByGenre {
		stats.BooksByGenre[genre] = n
	}
	return stats, true
}

// DraftNote returns the unsaved note for id, if one is being edited.
func (s *State) DraftNote(id int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.draftNotes[id]
	return note, ok
}

// Note returns the text enrichment should work from: the unsaved edit when
// there is one, the persisted note otherwise.
func (s *State) Note(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note, ok := s.draftNotes[id]; ok {
		return note
	}
	if i := s.indexOf(id); i >= 0 {
		return s.books[i].Notes
	}
	return ""
}

func (s *State) setDraftNote(id int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftNotes[id] = text
}

// clearDraftNote drops the unsaved edit for id if it is still saved.
func (s *State) clearDraftNote(id int64, saved string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if note, ok := s.draftNotes[id]; ok && note == saved {
		delete(s.draftNotes, id)
	}
}

func (s *State) markRemoved(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[id] = true
	delete(s.draftNotes, id)
}

// Removed reports whether id was deleted on the backend during this session.
func (s *State) Removed(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed[id]
}

func (s *State) beginList() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listIssued++
	return s.listIssued
}

// replaceBooks installs a fetched snapshot. It reports false when a newer
// fetch already landed and books were discarded.
func (s *State) replaceBooks(seq uint64, books []book.Book) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.listApplied {
		return false
	}
	s.listApplied = seq
	s.books = books
	return true
}

func (s *State) beginStats() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsIssued++
	return s.statsIssued
}

func (s *State) replaceStats(seq uint64, stats book.Stats) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.statsApplied {
		return false
	}
	s.statsApplied = seq
	s.stats = &stats
	return true
}

// setRating mutates the snapshot in place and returns the previous rating.
func (s *State) setRating(id int64, rating int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return 0, false
	}
	prev := s.books[i].Rating
	s.books[i].Rating = rating
	return prev, true
}

// revertRating restores prev only if the snapshot still holds the
// optimistic value.
func (s *State) revertRating(id int64, optimistic, prev int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 && s.books[i].Rating == optimistic {
		s.books[i].Rating = prev
	}
}

func (s *State) indexOf(id int64) int {
	for i := range s.books {
		if s.books[i].ID == id {
			return i
		}
	}
	return -1
}
