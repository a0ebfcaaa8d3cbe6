package models

import "time"

// Member is one live connection participating in a room. It exists from
// connect to disconnect and is never persisted.
type Member struct {
	// ID is the opaque connection identifier assigned by the transport.
	ID string

	// Color is the presence color assigned when the member joins a room.
	Color string

	// JoinedAt is when the member entered its current room.
	JoinedAt time.Time
}
