package txbuilder

import (
	"context"
	"sync"
)

// Deferred is a one-shot producer for a hex-string value that may not be
// known yet (e.g. a USDC contract address that depends on an RPC round
// trip for chainId). Resolve calls the producer at most once; the result
// is memoized and returned on every subsequent call.
type Deferred struct {
	mu       sync.Mutex
	produce  func(ctx context.Context) (string, error)
	resolved bool
	value    string
	err      error
}

// NewDeferred wraps producer as a Deferred value.
func NewDeferred(producer func(ctx context.Context) (string, error)) *Deferred {
	return &Deferred{produce: producer}
}

// Resolved wraps an already-known value as a Deferred that never calls a
// producer.
func Resolved(value string) *Deferred {
	return &Deferred{resolved: true, value: value}
}

// Resolve returns the memoized value, invoking the producer on first call.
func (d *Deferred) Resolve(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resolved {
		return d.value, d.err
	}
	d.value, d.err = d.produce(ctx)
	d.resolved = true
	return d.value, d.err
}
