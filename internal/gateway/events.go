package gateway

import "time"

// Collection names a document collection in change events.
type Collection string

const (
	CollectionLedger      Collection = "ledger"
	CollectionObligations Collection = "obligations"
	CollectionGoals       Collection = "goals"
	CollectionSettings    Collection = "settings"
	CollectionCategories  Collection = "categories"
)

// Op is the kind of write that produced a change event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent is one delta of the subscribe-for-changes primitive.
type ChangeEvent struct {
	FamilyID   string     `json:"family_id"`
	Collection Collection `json:"collection"`
	DocID      string     `json:"doc_id"`
	Op         Op         `json:"op"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewChangeEvent stamps an event with the current time.
func NewChangeEvent(familyID string, c Collection, docID string, op Op) ChangeEvent {
	return ChangeEvent{
		FamilyID:   familyID,
		Collection: c,
		DocID:      docID,
		Op:         op,
		Timestamp:  time.Now(),
	}
}
