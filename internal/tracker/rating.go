package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/erwar/bookbuddy/internal/book"
)

// RatingSync applies star ratings optimistically and persists them.
type RatingSync struct {
	state      *State
	backend    Backend
	collection *Collection
}

func NewRatingSync(state *State, backend Backend, collection *Collection) *RatingSync {
	return &RatingSync{state: state, backend: backend, collection: collection}
}

// Rate sets the book's rating in the snapshot at once, then saves it. The
// collection is re-fetched whether or not the save succeeded so the snapshot
// converges on the server's value. If both the save and the re-fetch fail,
// the optimistic value is reverted.
func (r *RatingSync) Rate(ctx context.Context, id int64, stars int) error {
	if stars < 1 || stars > 5 {
		return &book.ValidationError{Field: "rating", Message: "rating must be between 1 and 5"}
	}

	prev, ok := r.state.setRating(id, stars)
	if !ok {
		return &book.NotFoundError{Resource: "book", Key: fmt.Sprint(id)}
	}

	saveErr := r.backend.UpdateBook(ctx, id, book.Patch{Rating: &stars})
	if saveErr != nil {
		saveErr = fmt.Errorf("save rating for book %d: %w", id, saveErr)
	}

	listErr := r.collection.List(ctx)
	if saveErr != nil && listErr != nil {
		r.state.revertRating(id, stars, prev)
	}
	return errors.Join(saveErr, listErr)
}
