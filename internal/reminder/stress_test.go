package reminder

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/schedd/internal/model"
)

func TestRunnerStressConcurrentTicks(t *testing.T) {
	const total = 400
	rs := make([]model.Reminder, 0, total)
	for i := 0; i < total; i++ {
		rs = append(rs, absolute(fmt.Sprintf("r%03d", i), now.Add(-time.Duration(i%50+1)*time.Minute)))
	}
	store := newMemStore(rs...)
	r := newTestRunner(t, store, 4096)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			if _, err := r.Tick(context.Background()); err != nil {
				t.Errorf("tick failed: %v", err)
			}
		}()
	}
	wg.Wait()
	r.Stop()

	seen := make(map[string]int)
	for d := range r.C() {
		seen[d.Reminder.ID]++
	}
	if len(seen) != total {
		t.Fatalf("unexpected delivered count: got=%d want=%d dropped=%d", len(seen), total, r.Dropped())
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("reminder %s delivered %d times", id, n)
		}
	}
	if r.Dropped() != 0 {
		t.Fatalf("expected zero drops with a large buffer, got=%d", r.Dropped())
	}
}
