package cartstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/m3rciful/partsbot/storefront/cart"
)

var (
	tire   = cart.Item{Brand: "Pride", Model: "131", Name: "Foreign tire", Meta: "185", Price: 185, Qty: 1}
	mirror = cart.Item{Brand: "Pride", Model: "131", Name: "Side mirror", Meta: "1", Price: 120, Qty: 1}
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s cart.Store) {
	t.Helper()
	ctx := context.Background()

	c, err := s.Get(ctx, "42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !c.Empty() {
		t.Fatalf("new cart not empty: %+v", c)
	}

	if _, err := s.AddItem(ctx, "42", tire); err != nil {
		t.Fatalf("add tire: %v", err)
	}
	c, err = s.AddItem(ctx, "42", mirror)
	if err != nil {
		t.Fatalf("add mirror: %v", err)
	}
	if diff := cmp.Diff([]cart.Item{tire, mirror}, c.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if c.Total() != 305 {
		t.Fatalf("total = %d", c.Total())
	}

	got, err := s.Get(ctx, "42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Fatalf("persisted cart mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.AddItem(ctx, "7", mirror); err != nil {
		t.Fatalf("add other user: %v", err)
	}
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st != (cart.Stats{OpenCarts: 2, Items: 3}) {
		t.Fatalf("stats = %+v", st)
	}

	if err := s.Update(ctx, "7", cart.Cart{Items: []cart.Item{tire, tire}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := s.Get(ctx, "7"); len(got.Items) != 2 || got.Items[1] != tire {
		t.Fatalf("after update: %+v", got)
	}

	if err := s.Clear(ctx, "42"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx, "never-seen"); err != nil {
		t.Fatalf("clear absent: %v", err)
	}
	if got, _ := s.Get(ctx, "42"); !got.Empty() {
		t.Fatalf("cart not empty after clear: %+v", got)
	}
	if got, _ := s.Get(ctx, "7"); len(got.Items) != 2 {
		t.Fatalf("clear touched another user: %+v", got)
	}
}

// exerciseConcurrentAdds checks that parallel adds for one user are not lost.
func exerciseConcurrentAdds(t *testing.T, s cart.Store, n int) {
	t.Helper()
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it := mirror
			it.Meta = fmt.Sprint(i)
			if _, err := s.AddItem(ctx, "race", it); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent add: %v", err)
	}
	c, err := s.Get(ctx, "race")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(c.Items) != n {
		t.Fatalf("items = %d, want %d", len(c.Items), n)
	}
}
