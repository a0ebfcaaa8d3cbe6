package protocol

// DrawEvent is one step of an in-progress stroke or shape edit. It carries
// everything a receiver needs to replicate the step; only the start/move/end
// order per sender matters.
type DrawEvent struct {
	RoomID    string  `json:"roomId"`
	UserID    string  `json:"userId,omitempty"`
	X         float64 `json:"x" validate:"min=-1000000,max=1000000"`
	Y         float64 `json:"y" validate:"min=-1000000,max=1000000"`
	Color     string  `json:"color" validate:"max=50"`
	Thickness float64 `json:"thickness" validate:"min=0,max=1000"`
	Tool      Tool    `json:"tool"`
	Shape     Shape   `json:"shape,omitempty"`
}

// UserJoined announces a new room member to everyone already there.
type UserJoined struct {
	UserID    string `json:"userId"`
	Color     string `json:"color,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type UserLeft struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// UserList is sent to a joiner only and always includes the joiner itself.
type UserList struct {
	RoomID string            `json:"roomId"`
	Users  []string          `json:"users"`
	Colors map[string]string `json:"colors,omitempty"`
}

// StateUpdate carries a full-canvas snapshot, base64 encoded. It is either
// pushed by a member (stored server-side) or delivered to a requester.
type StateUpdate struct {
	RoomID    string `json:"roomId"`
	ImageData string `json:"imageData"`
}

// ChatInbound is the client-to-server chat shape. Sender identity and
// timestamp are never trusted from the client.
type ChatInbound struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message" validate:"max=2000"`
}

// ChatOutbound is the server-stamped chat shape relayed to the room.
type ChatOutbound struct {
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
