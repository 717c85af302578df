package replica

import (
	"log"

	"crdtset/packages/broadcast"
	"crdtset/packages/communication"
	"crdtset/packages/orset"

	mapset "github.com/deckarep/golang-set/v2"
)

// Replica binds an OR-Set engine to the broadcast middleware. Local
// operations apply their effect first, then hand the downstream payload to
// the middleware; updates from peers arrive on the middleware's Deliver
// channel and are applied as effects by the dequeue process.
type Replica struct {
	id         string
	Set        *orset.ORSet
	middleware *broadcast.Middleware
}

// New initializes replica state and starts consuming delivered updates.
// channels maps every replica id in the group, own id included, to its
// inbound channel.
func New(id string, channels map[string]chan communication.Update, opts broadcast.Options) *Replica {
	r := &Replica{
		id:         id,
		Set:        orset.New(id),
		middleware: broadcast.NewMiddleware(id, channels, opts),
	}

	go r.dequeue()

	return r
}

// Add applies an add locally and broadcasts the freshly tagged entry
// downstream.
func (r *Replica) Add(element string) {
	e := r.Set.Add(element)
	r.middleware.Bcast <- communication.NewAddUpdate(e, r.id)
	log.Println("[debug] [ REPLICA", r.id, "] BROADCASTED", e)
}

// Remove applies a remove locally and broadcasts the observed tag set
// downstream. A remove that observed nothing stays local; there is
// nothing any peer could delete.
func (r *Replica) Remove(element string) {
	tags := r.Set.Remove(element)
	if len(tags) == 0 {
		return
	}
	r.middleware.Bcast <- communication.NewRemoveUpdate(element, tags, r.id)
	log.Println("[debug] [ REPLICA", r.id, "] BROADCASTED rem", element, tags)
}

// Dequeues updates delivered by the middleware and applies their effect.
func (r *Replica) dequeue() {
	for {
		u := <-r.middleware.Deliver
		switch u.Kind {
		case communication.ADD:
			r.Set.AddEffect(u.Entry)
		case communication.REM:
			r.Set.RemoveEffect(u.Element, u.Tags)
		}
	}
}

// Merge performs a state-based sync, folding the other replica's snapshot
// into this one. The snapshot is a deep copy; the two replicas share no
// storage afterwards.
func (r *Replica) Merge(other *Replica) {
	r.Set.Merge(other.Set.Snapshot())
}

func (r *Replica) GetID() string {
	return r.id
}

func (r *Replica) Contains(element string) bool {
	return r.Set.Contains(element)
}

func (r *Replica) Elements() mapset.Set[string] {
	return r.Set.Elements()
}

func (r *Replica) Size() int {
	return r.Set.Size()
}

func (r *Replica) InternalSize() int {
	return r.Set.InternalSize()
}
