package tracker

import (
	"context"
	"fmt"

	"github.com/erwar/bookbuddy/internal/book"
)

// StatsAggregator mirrors the backend's aggregate endpoint. Stats are never
// derived locally so they follow server-side rules.
type StatsAggregator struct {
	state   *State
	backend Backend
}

func NewStatsAggregator(state *State, backend Backend) *StatsAggregator {
	return &StatsAggregator{state: state, backend: backend}
}

// Refresh re-queries the backend. On failure the previous stats stay.
func (a *StatsAggregator) Refresh(ctx context.Context) error {
	seq := a.state.beginStats()

	stats, err := a.backend.Stats(ctx)
	if err != nil {
		return fmt.Errorf("refresh stats: %w", err)
	}

	var s book.Stats
	if stats != nil {
		s = *stats
	}
	if s.Total == 0 {
		s.PercentCompleted = 0
	}
	if s.BooksByGenre == nil {
		s.BooksByGenre = map[string]int{}
	}
	a.state.replaceStats(seq, s)
	return nil
}

// Current returns the last stats fetched, and false before the first fetch.
func (a *StatsAggregator) Current() (book.Stats, bool) {
	return a.state.Stats()
}
