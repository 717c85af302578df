package orset

import (
	"crdtset/packages/communication"

	mapset "github.com/deckarep/golang-set/v2"
)

// Snapshot is a deep copy of a replica's tagged-entry state, the input
// Merge consumes. Entries are plain value pairs, so cloning the set is a
// full copy; two replicas never share mutable storage.
type Snapshot struct {
	Replica string
	Entries mapset.Set[communication.Entry]
}

// Snapshot captures the current entry store. The copy is internally
// consistent: it is taken under the read lock, between operations.
func (s *ORSet) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return Snapshot{Replica: s.id, Entries: s.entries.Clone()}
}

// Members derives the element set of the snapshot from its entries.
func (s Snapshot) Members() mapset.Set[string] {
	members := mapset.NewSet[string]()
	s.Entries.Each(func(e communication.Entry) bool {
		members.Add(e.Element)
		return false
	})
	return members
}
