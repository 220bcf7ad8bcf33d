package tracker

import (
	"context"
	"sync"
	"testing"

	"github.com/erwar/bookbuddy/internal/book"
)

func TestRateIsVisibleBeforeSave(t *testing.T) {
	tr, backend := loaded(t, dune())

	entered := make(chan struct{})
	release := make(chan struct{})
	backend.updateHook = func(int64) {
		close(entered)
		<-release
	}

	var err error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err = tr.Ratings.Rate(context.Background(), 1, 4)
	}()
	<-entered

	if b, _ := tr.State.Book(1); b.Rating != 4 {
		t.Errorf("rating during save = %d, want optimistic 4", b.Rating)
	}

	close(release)
	wg.Wait()
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if b, _ := tr.State.Book(1); b.Rating != 4 || b.Progress != 40 {
		t.Errorf("book after reconcile = %+v", b)
	}
	if backend.count("list") != 2 {
		t.Errorf("list calls = %d, want reconcile after save", backend.count("list"))
	}
}

func TestRateFailureReconcilesToServer(t *testing.T) {
	b := dune()
	b.Rating = 2
	tr, backend := loaded(t, b)
	backend.setFail("update", errOffline)

	if err := tr.Ratings.Rate(context.Background(), 1, 5); err == nil {
		t.Fatal("expected error")
	}
	if got, _ := tr.State.Book(1); got.Rating != 2 {
		t.Errorf("rating = %d, want server value 2", got.Rating)
	}
	if backend.count("list") != 2 {
		t.Errorf("no reconcile after failed save")
	}
}

func TestRateRevertsWhenOffline(t *testing.T) {
	b := dune()
	b.Rating = 3
	tr, backend := loaded(t, b)
	backend.setFail("update", errOffline)
	backend.setFail("list", errOffline)

	if err := tr.Ratings.Rate(context.Background(), 1, 1); err == nil {
		t.Fatal("expected error")
	}
	if got, _ := tr.State.Book(1); got.Rating != 3 {
		t.Errorf("rating = %d, want reverted 3", got.Rating)
	}
}

func TestRateValidates(t *testing.T) {
	tr, backend := loaded(t, dune())

	for _, stars := range []int{0, 6, -1} {
		if err := tr.Ratings.Rate(context.Background(), 1, stars); !book.IsValidation(err) {
			t.Errorf("Rate(%d) = %v, want ValidationError", stars, err)
		}
	}
	if err := tr.Ratings.Rate(context.Background(), 99, 3); !book.IsNotFound(err) {
		t.Errorf("Rate(unknown) = %v, want NotFoundError", err)
	}
	if backend.count("update") != 0 {
		t.Error("invalid rating was sent")
	}
}
