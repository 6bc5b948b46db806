package models

// Feed event actions.
const (
	FeedInsert = "insert"
	FeedUpdate = "update"
	FeedDelete = "delete"
)

// FeedEvent is broadcast over change-feed websockets whenever a row in a
// watched collection changes.
type FeedEvent struct {
	Table  string      `json:"table"`
	Action string      `json:"action"`
	Row    interface{} `json:"row"`
}

// Presence frame types exchanged on the shared presence channel.
const (
	PresenceTrack = "track"
	PresenceSync  = "sync"
)

// PresenceFrame is a frame on the presence channel. Clients send "track"
// frames carrying their own state; the server answers every membership
// change with a "sync" frame carrying the full member snapshot.
type PresenceFrame struct {
	Type    string          `json:"type"`
	State   *PresenceState  `json:"state,omitempty"`
	Members []PresenceState `json:"members,omitempty"`
}
