// Package search ranks books in a loaded collection against a keyword query.
package search

import (
	"sort"
	"strings"

	"github.com/erwar/bookbuddy/internal/book"
)

type Result struct {
	Book  book.Book
	Score float64
}

// Field weights. A title hit counts for more than a hit in the notes.
const (
	titleWeight  = 3.0
	authorWeight = 2.0
	genreWeight  = 1.5
	notesWeight  = 1.0
)

// Search returns the books matching every term of query, best match first.
// A limit of zero or less returns all matches.
func Search(books []book.Book, query string, limit int) []Result {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	results := make([]Result, 0, len(books))
	for _, b := range books {
		if score := scoreBook(b, terms); score > 0 {
			results = append(results, Result{Book: b, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}

// SameGenre returns the other books in the collection sharing the genre of
// the book with the given id, highest rated first.
func SameGenre(books []book.Book, id int64) []book.Book {
	var genre string
	found := false
	for _, b := range books {
		if b.ID == id {
			genre = strings.ToLower(strings.TrimSpace(b.Genre))
			found = true
			break
		}
	}
	if !found || genre == "" {
		return nil
	}

	var out []book.Book
	for _, b := range books {
		if b.ID != id && strings.ToLower(strings.TrimSpace(b.Genre)) == genre {
			out = append(out, b)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}

func scoreBook(b book.Book, terms []string) float64 {
	fields := []struct {
		text   string
		weight float64
	}{
		{strings.ToLower(b.Title), titleWeight},
		{strings.ToLower(b.Author), authorWeight},
		{strings.ToLower(b.Genre), genreWeight},
		{strings.ToLower(b.Notes), notesWeight},
	}

	var total float64
	for _, term := range terms {
		var termScore float64
		for _, f := range fields {
			termScore += float64(strings.Count(f.text, term)) * f.weight
		}
		if termScore == 0 {
			return 0
		}
		total += termScore
	}
	return total
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
