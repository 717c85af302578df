package replica

import (
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"crdtset/packages/broadcast"
	"crdtset/packages/communication"
)

func newGroup(t *testing.T, n int, opts broadcast.Options) []*Replica {
	t.Helper()
	channels := map[string]chan communication.Update{}
	for i := 0; i < n; i++ {
		channels[strconv.Itoa(i)] = make(chan communication.Update)
	}
	replicas := make([]*Replica, n)
	for i := 0; i < n; i++ {
		replicas[i] = New(strconv.Itoa(i), channels, opts)
	}
	return replicas
}

// waitFor polls cond until it holds or the deadline passes. Delivery over
// the middleware is asynchronous, so tests wait instead of sleeping a
// fixed amount.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestBroadcastAddReachesPeers(t *testing.T) {
	replicas := newGroup(t, 3, broadcast.Options{})

	replicas[0].Add("apple")

	for _, r := range replicas[1:] {
		r := r
		if !waitFor(t, 2*time.Second, func() bool { return r.Contains("apple") }) {
			t.Error("replica", r.GetID(), "never received the add")
		}
	}
}

func TestBroadcastRemoveDeletesObservedTags(t *testing.T) {
	replicas := newGroup(t, 2, broadcast.Options{})

	replicas[0].Add("apple")
	if !waitFor(t, 2*time.Second, func() bool { return replicas[1].Contains("apple") }) {
		t.Fatal("add never delivered")
	}

	replicas[0].Remove("apple")
	if !waitFor(t, 2*time.Second, func() bool { return !replicas[1].Contains("apple") }) {
		t.Error("remove of an observed tag never took effect downstream")
	}
	if replicas[1].InternalSize() != 0 {
		t.Error("tagged entry survived its removal:", replicas[1].InternalSize())
	}
}

// An add and the remove that observed it race through the middleware with
// duplication and delay turned up. Whatever order they land in, the peer
// must end without the tag; no state merge papers over the outcome here.
func TestReorderedDeliveryKeepsRemoveEffective(t *testing.T) {
	opts := broadcast.Options{
		DuplicateProb: 1.0,
		MaxDelay:      20 * time.Millisecond,
		Seed:          99,
	}
	replicas := newGroup(t, 2, opts)

	replicas[0].Add("apple")
	replicas[0].Remove("apple") // observes only its own fresh tag

	// outlasts every injected delay and duplicate
	time.Sleep(300 * time.Millisecond)

	if replicas[1].Contains("apple") {
		t.Error("peer resurrected a removed tag after reordered delivery")
	}
	if replicas[1].InternalSize() != 0 {
		t.Error("tagged entry survived on the peer:", replicas[1].InternalSize())
	}
	if !replicas[0].Elements().Equal(replicas[1].Elements()) {
		t.Error("origin and peer diverged")
	}
}

func TestRemoveWithoutObservationStaysLocal(t *testing.T) {
	replicas := newGroup(t, 2, broadcast.Options{})

	replicas[0].Remove("ghost")

	time.Sleep(50 * time.Millisecond)
	if replicas[0].Size() != 0 || replicas[1].Size() != 0 {
		t.Error("remove of an absent element changed state somewhere")
	}
}

// Concurrent independent histories plus a full merge closure converge,
// even with duplicated and delayed deliveries.
func TestGroupConvergence(t *testing.T) {
	opts := broadcast.Options{
		DuplicateProb: 0.5,
		MaxDelay:      5 * time.Millisecond,
		Seed:          42,
	}
	replicas := newGroup(t, 3, opts)

	var wg sync.WaitGroup
	for i, r := range replicas {
		wg.Add(1)
		go func(r *Replica, i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Add(fmt.Sprintf("element_%d", (i*7+j)%10))
				if j%4 == 3 {
					r.Remove(fmt.Sprintf("element_%d", j%10))
				}
			}
		}(r, i)
	}
	wg.Wait()

	// drain in-flight deliveries, then close over pairwise merges
	time.Sleep(200 * time.Millisecond)
	for round := 0; round < len(replicas); round++ {
		for i := range replicas {
			for j := i + 1; j < len(replicas); j++ {
				replicas[i].Merge(replicas[j])
				replicas[j].Merge(replicas[i])
			}
		}
	}

	first := replicas[0].Elements()
	for _, r := range replicas[1:] {
		if !r.Elements().Equal(first) {
			for _, rr := range replicas {
				t.Log("replica", rr.GetID(), ":", rr.Elements())
			}
			t.Fatal("replicas did not converge")
		}
		if r.InternalSize() != replicas[0].InternalSize() {
			t.Error("entry stores diverged:", r.InternalSize(), "vs", replicas[0].InternalSize())
		}
	}
}

func TestMergeIsStateBased(t *testing.T) {
	// two disjoint groups never share a channel map; merge still syncs them
	a := newGroup(t, 2, broadcast.Options{})
	b := newGroup(t, 2, broadcast.Options{})

	a[0].Add("left")
	b[0].Add("right")
	if !waitFor(t, 2*time.Second, func() bool { return a[1].Contains("left") && b[1].Contains("right") }) {
		t.Fatal("intra-group delivery never completed")
	}

	a[0].Merge(b[0])
	if !a[0].Contains("right") || a[0].Size() != 2 {
		t.Error("merge did not import the foreign entry store")
	}
	if b[0].Contains("left") {
		t.Error("merge mutated the snapshot source")
	}
}
