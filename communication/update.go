package communication

const (
	ADD int = 0
	REM int = 1
)

// Update is the payload a replica disseminates downstream after a local
// operation. Add updates carry the freshly tagged entry. Remove updates
// carry the tag set the removal observed, so non-originating replicas
// delete exactly the same entries; broadcasting only the element name
// would also wipe tags the remover never saw and break add-wins.
type Update struct {
	Kind     int
	Element  string
	Entry    Entry // set for ADD
	Tags     []Tag // set for REM
	OriginID string
}

// NewAddUpdate composes a downstream update for a freshly tagged entry.
func NewAddUpdate(e Entry, origin string) Update {
	return Update{Kind: ADD, Element: e.Element, Entry: e, OriginID: origin}
}

// NewRemoveUpdate composes a downstream update for an observed tag set.
func NewRemoveUpdate(element string, tags []Tag, origin string) Update {
	return Update{Kind: REM, Element: element, Tags: tags, OriginID: origin}
}
