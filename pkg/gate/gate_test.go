package gate

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGate(t *testing.T) {
	t.Run("first acquire wins", func(t *testing.T) {
		var g Gate
		if !g.TryAcquire() {
			t.Fatal("expected first acquire to succeed")
		}
		if !g.Held() {
			t.Error("expected gate to be held")
		}
		if g.TryAcquire() {
			t.Error("expected second acquire to fail while held")
		}
	})

	t.Run("release reopens", func(t *testing.T) {
		var g Gate
		g.TryAcquire()
		g.Release()
		if g.Held() {
			t.Error("expected gate to be free after release")
		}
		if !g.TryAcquire() {
			t.Error("expected acquire after release to succeed")
		}
	})
}

func TestGateConcurrentAcquire(t *testing.T) {
	for round := 0; round < 50; round++ {
		var g Gate
		var winners atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if g.TryAcquire() {
					winners.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		if n := winners.Load(); n != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d", round, n)
		}
	}
}
