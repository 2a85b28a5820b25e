package domain

// ContentKind distinguishes what kind of item a publication refers to.
type ContentKind string

const (
	KindLaunch ContentKind = "launch"
	KindNews   ContentKind = "news"
)

// String returns the string representation of ContentKind.
func (k ContentKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k ContentKind) IsValid() bool {
	return k == KindLaunch || k == KindNews
}

// DestinationClass identifies a class of publish target. Classes are
// tracked independently: sending to one never marks an item sent for
// another.
type DestinationClass string

const (
	// DestChannel is the primary destination class; it is the only class
	// reflected by the Posted convenience flag on items.
	DestChannel DestinationClass = "channel"
	DestGroup   DestinationClass = "group"
)

// String returns the string representation of DestinationClass.
func (d DestinationClass) String() string {
	return string(d)
}

// IsValid checks if the destination class is a valid value.
func (d DestinationClass) IsValid() bool {
	return d == DestChannel || d == DestGroup
}

// Destination is a concrete publish target.
type Destination struct {
	Class DestinationClass
	ID    string // platform-specific identifier (e.g. a telegram chat id)
}

// Publication records that one content item was sent to one destination.
// Corresponds to publications table in PostgreSQL.
//
// At most one Publication exists per (Kind, ItemID, DestinationClass);
// it is created only after a confirmed successful send and never updated.
type Publication struct {
	ID               string // uuid
	Kind             ContentKind
	ItemID           string // Asset.ID or NewsItem.ID
	DestinationClass DestinationClass
	DestinationID    string // resolved target identifier
	MessageID        string // remote message identifier from the platform
	SentAt           int64  // Unix timestamp in milliseconds
}
