package broadcast

import (
	"log"
	"math/rand"
	"time"

	"crdtset/packages/communication"
)

// Options tune the delivery faults the middleware injects. The OR-Set
// merge absorbs duplicates and reordering, so tests dial these up to prove
// it; zero values mean plain fan-out.
type Options struct {
	DuplicateProb float64       // chance a peer receives an update twice
	MaxDelay      time.Duration // upper bound on injected delivery delay
	Seed          int64         // 0 seeds from the wall clock
}

// Middleware is the delivery channel between replicas: an at-least-once,
// unordered fan-out over per-replica Go channels. Updates enqueued on
// Bcast reach every peer's inbound channel eventually; updates arriving on
// the own inbound channel surface on Deliver for the owning replica.
// There is no ordering and no deduplication.
type Middleware struct {
	replica  string
	channels map[string]chan communication.Update
	opts     Options
	rng      *rand.Rand

	Bcast   chan communication.Update
	Deliver chan communication.Update
}

// NewMiddleware creates the middleware state for one replica and starts
// its dequeue and receive processes. channels maps every replica id in the
// group, own id included, to its inbound channel.
func NewMiddleware(id string, channels map[string]chan communication.Update, opts Options) *Middleware {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mw := &Middleware{
		replica:  id,
		channels: channels,
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
		Bcast:    make(chan communication.Update),
		Deliver:  make(chan communication.Update),
	}

	go mw.dequeue()
	go mw.receive()

	return mw
}

// run middleware by waiting for updates on the Bcast channel
func (mw *Middleware) dequeue() {
	for {
		u := <-mw.Bcast
		mw.broadcast(u)
	}
}

// broadcasts an update to the channels of all other replicas. Each
// delivery runs in its own goroutine and may sleep or fire twice, so
// arrival order across peers carries no guarantee.
func (mw *Middleware) broadcast(u communication.Update) {
	for id, ch := range mw.channels {
		if mw.replica == id {
			continue
		}
		sends := 1
		if mw.opts.DuplicateProb > 0 && mw.rng.Float64() < mw.opts.DuplicateProb {
			sends = 2
		}
		var delay time.Duration
		if mw.opts.MaxDelay > 0 {
			delay = time.Duration(mw.rng.Int63n(int64(mw.opts.MaxDelay)))
		}
		for i := 0; i < sends; i++ {
			go func(newCh chan communication.Update, d time.Duration) {
				if d > 0 {
					time.Sleep(d)
				}
				newCh <- u
			}(ch, delay)
		}
	}
}

func (mw *Middleware) receive() {
	for {
		u := <-mw.channels[mw.replica]
		log.Println("[debug] [ MIDDLEWARE", mw.replica, "] RECEIVED", u, "FROM", u.OriginID)
		mw.Deliver <- u
	}
}
