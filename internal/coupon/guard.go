package coupon

import "sync"

// Guard serialises coupon validation per cart. Each edit of the coupon field
// begins a new generation; a validation result may only be committed while
// its generation is still the latest, so a slow response for an old code can
// never overwrite the summary for a newer one.
type Guard struct {
	mu  sync.Mutex
	gen map[string]uint64
}

// NewGuard constructs an empty guard.
func NewGuard() *Guard {
	return &Guard{gen: make(map[string]uint64)}
}

// Begin registers a new validation attempt for the cart and returns its
// generation token.
func (g *Guard) Begin(cartID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen[cartID]++
	return g.gen[cartID]
}

// Commit reports whether the given generation is still current for the cart.
// A superseded attempt must discard its result.
func (g *Guard) Commit(cartID string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen[cartID] == gen
}

// Forget drops tracking state for a cart, e.g. after checkout.
func (g *Guard) Forget(cartID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.gen, cartID)
}
