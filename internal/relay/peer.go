package relay

// Peer is a connected client as seen by the relay. Send must not block:
// it returns false when the peer's outbound queue is gone or full, and the
// relay then treats the peer as disconnected.
type Peer interface {
	ID() string
	Send(data []byte) bool
}
