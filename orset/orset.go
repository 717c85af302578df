// Package orset implements a state-based observed-remove set following the
// specification by Shapiro, Preguiça, Baquero and Zawirski. Every add mints
// a unique tag and an element is present while at least one tagged entry
// for it survives. Remove only deletes tags observed locally at call time,
// which is what lets a concurrent add win over it.
package orset

import (
	"sync"

	"crdtset/packages/communication"

	mapset "github.com/deckarep/golang-set/v2"
)

type ORSet struct {
	lock    *sync.RWMutex
	id      string
	counter uint64
	entries mapset.Set[communication.Entry]
	members mapset.Set[string] // derived from entries, kept for O(1) Contains
	// Tags whose removal this replica has performed or seen on the update
	// channel. Delivery is unordered, so a remove effect can arrive before
	// the add it observed; the tombstone keeps that late add dead. Like
	// entries, tombstones are never pruned.
	removed mapset.Set[communication.Tag]
}

// New returns an empty replica. Uniqueness of id across the system is the
// caller's responsibility.
func New(id string) *ORSet {
	return &ORSet{
		lock:    new(sync.RWMutex),
		id:      id,
		entries: mapset.NewSet[communication.Entry](),
		members: mapset.NewSet[string](),
		removed: mapset.NewSet[communication.Tag](),
	}
}

// Add is the source half of an update add: it mints a fresh tag, applies
// the effect locally and returns the new entry for downstream broadcast.
// Repeated adds of the same element coexist as distinct tagged entries.
func (s *ORSet) Add(element string) communication.Entry {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.counter++
	e := communication.Entry{
		Element: element,
		Tag:     communication.Tag{Replica: s.id, Counter: s.counter},
	}
	s.entries.Add(e)
	s.members.Add(element)
	return e
}

// AddEffect applies an add produced at another replica. Inserting an entry
// already present is a no-op, which keeps repeated delivery harmless. An
// entry whose tag is already tombstoned stays dead: the remove that
// observed it was simply delivered first.
func (s *ORSet) AddEffect(e communication.Entry) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.removed.Contains(e.Tag) {
		return
	}
	s.entries.Add(e)
	s.members.Add(e.Element)
}

// Remove is the source half of an update remove: it snapshots the tags
// currently observed for element, deletes those entries and returns the
// snapshot for downstream broadcast. Tags minted by adds this replica has
// not seen yet are untouched. Removing an absent element is a no-op
// returning nil.
func (s *ORSet) Remove(element string) []communication.Tag {
	s.lock.Lock()
	defer s.lock.Unlock()

	tags := s.observedTags(element)
	if len(tags) == 0 {
		return nil
	}
	for _, t := range tags {
		s.entries.Remove(communication.Entry{Element: element, Tag: t})
		s.removed.Add(t)
	}
	// Every local entry for element was in the snapshot.
	s.members.Remove(element)
	return tags
}

// RemoveEffect applies a remove produced at another replica, deleting
// exactly the tags that replica observed. The element stays a member while
// any other tag for it survives. The tags are tombstoned first, so the
// effect holds even when the add they observed has not been delivered yet.
func (s *ORSet) RemoveEffect(element string, tags []communication.Tag) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, t := range tags {
		s.removed.Add(t)
		s.entries.Remove(communication.Entry{Element: element, Tag: t})
	}
	if !s.hasEntry(element) {
		s.members.Remove(element)
	}
}

// Contains reports membership from the derived cache, O(1) in the size of
// the entry store.
func (s *ORSet) Contains(element string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.members.Contains(element)
}

// Elements returns a snapshot copy of the distinct elements present.
func (s *ORSet) Elements() mapset.Set[string] {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.members.Clone()
}

// Merge folds another replica's snapshot into this one by entry-store
// union. Union over an append-only tag space is idempotent, commutative
// and associative, so merge order and repetition never affect the
// converged state.
func (s *ORSet) Merge(snap Snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()

	snap.Entries.Each(func(e communication.Entry) bool {
		s.entries.Add(e)
		s.members.Add(e.Element)
		return false
	})
}

// Size is the number of distinct elements present.
func (s *ORSet) Size() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.members.Cardinality()
}

// InternalSize is the number of tagged entries. It exceeds Size whenever
// an element carries more than one live tag and grows without bound over
// the lifetime of the replica, since tags are never pruned.
func (s *ORSet) InternalSize() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.entries.Cardinality()
}

// Tags returns the tags currently observed for element, in tag order.
func (s *ORSet) Tags(element string) []communication.Tag {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.observedTags(element)
}

func (s *ORSet) ID() string {
	return s.id
}

// Counter returns how many adds this replica has performed locally.
func (s *ORSet) Counter() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.counter
}

func (s *ORSet) observedTags(element string) []communication.Tag {
	var tags []communication.Tag
	s.entries.Each(func(e communication.Entry) bool {
		if e.Element == element {
			tags = append(tags, e.Tag)
		}
		return false
	})
	communication.SortTags(tags)
	return tags
}

func (s *ORSet) hasEntry(element string) bool {
	found := false
	s.entries.Each(func(e communication.Entry) bool {
		if e.Element == element {
			found = true
			return true
		}
		return false
	})
	return found
}
