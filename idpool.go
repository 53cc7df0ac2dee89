package tracekit

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// idPool maintains a buffer of pre-generated identifiers to amortize
// crypto/rand overhead on the span hot path.
type idPool struct {
	factory func() string
	ids     chan string
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

func newIDPool(capacity int, factory func() string) *idPool {
	pool := &idPool{
		ids:     make(chan string, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	go pool.refill()
	return pool
}

// get retrieves an ID from the pool, generating directly under burst load.
func (p *idPool) get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		return p.factory()
	}
}

// refill keeps the pool topped up in the background.
func (p *idPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
			select {
			case p.ids <- p.factory():
			case <-p.stopCh:
				return
			}
		}
	}
}

func (p *idPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}

// randomHexID returns n cryptographically random bytes as lower-hex.
// Identifier generation must not degrade to a weaker source: a failing
// random source is fatal.
func randomHexID(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("tracekit: identifier generation failed: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// newTraceID returns a fresh 128-bit trace identifier.
func newTraceID() string {
	return randomHexID(16)
}

// newSpanID returns a fresh 64-bit span identifier.
func newSpanID() string {
	return randomHexID(8)
}
