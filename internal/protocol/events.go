package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidMessage = errors.New("invalid message")

// Event names exchanged between clients and the server. The set is closed:
// anything outside it is rejected at decode time.
const (
	EventRoomJoin     = "room:join"
	EventRoomLeave    = "room:leave"
	EventUserJoined   = "room:user_joined"
	EventUserLeft     = "room:user_left"
	EventUserList     = "room:user_list"
	EventDrawStart    = "draw:start"
	EventDrawMove     = "draw:move"
	EventDrawEnd      = "draw:end"
	EventDrawClear    = "draw:clear"
	EventRequestState = "draw:request_state"
	EventStateUpdate  = "draw:state_update"
	EventChatMessage  = "chat:message"
)

// Envelope wraps every wire message. Data stays raw until the
// receiving side knows which payload shape to expect.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// KnownEvent reports whether event belongs to the protocol.
func KnownEvent(event string) bool {
	switch event {
	case EventRoomJoin, EventRoomLeave, EventUserJoined, EventUserLeft,
		EventUserList, EventDrawStart, EventDrawMove, EventDrawEnd,
		EventDrawClear, EventRequestState, EventStateUpdate, EventChatMessage:
		return true
	}
	return false
}

// NewEnvelope builds an envelope with a marshaled payload. A nil payload
// produces an envelope with no data, which is how draw:clear is broadcast.
func NewEnvelope(event string, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a raw wire message into an envelope, rejecting
// events outside the protocol.
func Decode(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %s", ErrInvalidMessage, err)
	}
	if !KnownEvent(e.Event) {
		return Envelope{}, fmt.Errorf("%w: unknown event %q", ErrInvalidMessage, e.Event)
	}
	return e, nil
}

// DecodeString extracts a bare-string payload. room:join, room:leave,
// draw:clear and draw:request_state carry the room id this way.
func (e Envelope) DecodeString() (string, error) {
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return "", fmt.Errorf("%w: %s payload is not a string", ErrInvalidMessage, e.Event)
	}
	return s, nil
}

// DecodeInto unmarshals a structured payload.
func (e Envelope) DecodeInto(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrInvalidMessage, e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %s", ErrInvalidMessage, e.Event, err)
	}
	return nil
}
