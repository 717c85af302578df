package communication

import (
	"fmt"
	"sort"
	"strings"
)

// Tag identifies a single add event. A replica mints a tag by pairing its
// own id with a local counter it only ever increments, so no two adds in
// the whole system share a tag as long as replica ids are unique.
type Tag struct {
	Replica string
	Counter uint64
}

// Compare orders tags lexicographically by replica id, then numerically by
// counter. Returns -1, 0 or 1.
func (t Tag) Compare(other Tag) int {
	if c := strings.Compare(t.Replica, other.Replica); c != 0 {
		return c
	}
	switch {
	case t.Counter < other.Counter:
		return -1
	case t.Counter > other.Counter:
		return 1
	}
	return 0
}

func (t Tag) Less(other Tag) bool {
	return t.Compare(other) < 0
}

func (t Tag) String() string {
	return fmt.Sprintf("%s:%d", t.Replica, t.Counter)
}

// Entry is a stored (element, tag) pair, the unit of storage, replication
// and merge. An element is present at a replica iff at least one entry for
// it exists in that replica's store.
type Entry struct {
	Element string
	Tag     Tag
}

func (e Entry) String() string {
	return fmt.Sprintf("(%s %s)", e.Element, e.Tag)
}

// SortTags sorts tags in place by the total tag order.
func SortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].Less(tags[j]) })
}
