package types

// Entity is one node of the membership graph: a UID, its attributes, and
// the UIDs it is a direct member of. Entities are immutable once built;
// the evaluator only ever reads them.
type Entity struct {
	UID     EntityUID
	Attrs   Record
	Parents []EntityUID
}

// NewEntity builds an Entity. The parents slice is copied, not retained.
func NewEntity(uid EntityUID, attrs Record, parents []EntityUID) Entity {
	copied := make([]EntityUID, len(parents))
	copy(copied, parents)
	return Entity{UID: uid, Attrs: attrs, Parents: copied}
}
