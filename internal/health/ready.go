package health

import "sync/atomic"

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness gate. Graceful shutdown sets it to false so
// load balancers drain the instance before connections are closed.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the current readiness gate state.
func IsReady() bool {
	return ready.Load()
}
