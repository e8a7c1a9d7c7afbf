package coupon

import (
	"sync"
	"testing"
)

func TestGuardSupersedesOlderGeneration(t *testing.T) {
	g := NewGuard()

	first := g.Begin("cart-1")
	second := g.Begin("cart-1")

	if g.Commit("cart-1", first) {
		t.Fatal("older generation must not commit")
	}
	if !g.Commit("cart-1", second) {
		t.Fatal("latest generation must commit")
	}
}

func TestGuardCartsAreIndependent(t *testing.T) {
	g := NewGuard()

	a := g.Begin("cart-a")
	g.Begin("cart-b")

	if !g.Commit("cart-a", a) {
		t.Fatal("activity on another cart must not supersede this one")
	}
}

func TestGuardForget(t *testing.T) {
	g := NewGuard()
	gen := g.Begin("cart-1")
	g.Forget("cart-1")
	if g.Commit("cart-1", gen) {
		t.Fatal("forgotten cart must not commit stale generations")
	}
}

func TestGuardConcurrentBegins(t *testing.T) {
	g := NewGuard()
	const n = 100

	tokens := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = g.Begin("cart-1")
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	var max uint64
	for _, tok := range tokens {
		if seen[tok] {
			t.Fatalf("duplicate generation token %d", tok)
		}
		seen[tok] = true
		if tok > max {
			max = tok
		}
	}
	if max != n {
		t.Fatalf("expected max generation %d, got %d", n, max)
	}

	commits := 0
	for _, tok := range tokens {
		if g.Commit("cart-1", tok) {
			commits++
		}
	}
	if commits != 1 {
		t.Fatalf("exactly one generation may commit, got %d", commits)
	}
}
