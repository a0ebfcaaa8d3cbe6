package relay

import (
	"time"

	"go.uber.org/zap"

	"github.com/segfal/whiteboard/internal/protocol"
	"github.com/segfal/whiteboard/internal/room"
)

const DefaultStateRequestTimeout = 5 * time.Second

// Relay is the synchronization layer: it decides, for each inbound event,
// who receives a copy and what the registry records. It never interprets
// canvas content; the server is a relay and snapshot cache only.
//
// All state (registry, peers, pending state requests) is owned by the single
// Run goroutine. Each inbound message is handled to completion before the
// next, which removes cross-connection races without locking.
type Relay struct {
	registry  *room.Registry
	validator *protocol.Validator
	logger    *zap.Logger

	peers   map[string]Peer
	pending map[string]*stateRequest // room id -> in-flight snapshot bootstrap

	requestTimeout time.Duration

	register   chan Peer
	unregister chan string
	inbound    chan inboundMessage
	expired    chan string
	done       chan struct{}
}

type inboundMessage struct {
	peerID string
	raw    []byte
}

// stateRequest tracks a snapshot bootstrap on behalf of one or more
// requesters: which member was asked, who was already tried, and the timer
// that moves on to the next donor.
type stateRequest struct {
	requesters []string
	donor      string
	tried      map[string]bool
	timer      *time.Timer
}

func NewRelay(registry *room.Registry, validator *protocol.Validator, requestTimeout time.Duration, logger *zap.Logger) *Relay {
	if requestTimeout <= 0 {
		requestTimeout = DefaultStateRequestTimeout
	}
	return &Relay{
		registry:       registry,
		validator:      validator,
		logger:         logger,
		peers:          make(map[string]Peer),
		pending:        make(map[string]*stateRequest),
		requestTimeout: requestTimeout,
		register:       make(chan Peer),
		unregister:     make(chan string),
		inbound:        make(chan inboundMessage, 256),
		expired:        make(chan string, 16),
		done:           make(chan struct{}),
	}
}

// Start runs the event loop until Stop is called.
func (r *Relay) Start() {
	for {
		select {
		case <-r.done:
			return
		case p := <-r.register:
			r.peers[p.ID()] = p
			r.logger.Debug("peer registered", zap.String("peer", p.ID()))
		case id := <-r.unregister:
			r.handleDisconnect(id)
		case m := <-r.inbound:
			r.handleMessage(m.peerID, m.raw)
		case roomID := <-r.expired:
			r.advanceStateRequest(roomID)
		}
	}
}

func (r *Relay) Stop() {
	close(r.done)
}

// Register hands a newly connected peer to the relay.
func (r *Relay) Register(p Peer) {
	select {
	case r.register <- p:
	case <-r.done:
	}
}

// Unregister tears down a peer: it is removed from every room it was in and
// remaining members are notified. Invoked once per connection teardown.
func (r *Relay) Unregister(peerID string) {
	select {
	case r.unregister <- peerID:
	case <-r.done:
	}
}

// Dispatch queues one raw client message for handling.
func (r *Relay) Dispatch(peerID string, raw []byte) {
	select {
	case r.inbound <- inboundMessage{peerID: peerID, raw: raw}:
	case <-r.done:
	}
}

func (r *Relay) handleMessage(peerID string, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		r.logger.Debug("dropping undecodable message", zap.String("peer", peerID), zap.Error(err))
		return
	}

	switch env.Event {
	case protocol.EventRoomJoin:
		roomID, err := env.DecodeString()
		if err != nil {
			r.logger.Debug("bad join payload", zap.String("peer", peerID), zap.Error(err))
			return
		}
		r.handleJoin(peerID, roomID)
	case protocol.EventRoomLeave:
		roomID, err := env.DecodeString()
		if err != nil {
			r.logger.Debug("bad leave payload", zap.String("peer", peerID), zap.Error(err))
			return
		}
		r.handleLeave(peerID, roomID)
	case protocol.EventDrawStart, protocol.EventDrawMove, protocol.EventDrawEnd:
		r.handleDraw(peerID, env)
	case protocol.EventDrawClear:
		roomID, err := env.DecodeString()
		if err != nil {
			r.logger.Debug("bad clear payload", zap.String("peer", peerID), zap.Error(err))
			return
		}
		r.handleClear(peerID, roomID)
	case protocol.EventRequestState:
		roomID, err := env.DecodeString()
		if err != nil {
			r.logger.Debug("bad state request payload", zap.String("peer", peerID), zap.Error(err))
			return
		}
		r.handleStateRequest(peerID, roomID)
	case protocol.EventStateUpdate:
		r.handleStateUpdate(peerID, env)
	case protocol.EventChatMessage:
		r.handleChat(peerID, env)
	default:
		// Server-to-client events have no business arriving from a client.
		r.logger.Debug("unexpected client event", zap.String("peer", peerID), zap.String("event", env.Event))
	}
}

func (r *Relay) handleJoin(peerID, roomID string) {
	res, ok := r.registry.Join(roomID, peerID)
	if !ok {
		r.logger.Warn("join rejected", zap.String("peer", peerID), zap.String("room", roomID))
		return
	}

	if res.AutoLeft != nil {
		r.afterDeparture(*res.AutoLeft)
	}

	r.sendTo(peerID, protocol.EventUserList, protocol.UserList{
		RoomID: res.RoomID,
		Users:  res.Roster,
		Colors: res.Colors,
	})

	if res.Rejoin {
		return
	}

	r.broadcast(res.RoomID, protocol.EventUserJoined, protocol.UserJoined{
		UserID:    peerID,
		Color:     res.Member.Color,
		Timestamp: time.Now().UnixMilli(),
	}, peerID)

	// Bootstrap the joiner's canvas from an existing member.
	if len(res.Roster) > 1 {
		r.beginStateRequest(res.RoomID, peerID)
	}
}

func (r *Relay) handleLeave(peerID, roomID string) {
	dep, ok := r.registry.Leave(roomID, peerID)
	if !ok {
		return // not a member: no-op, no broadcast
	}
	r.afterDeparture(dep)
}

func (r *Relay) handleDisconnect(peerID string) {
	delete(r.peers, peerID)
	for _, dep := range r.registry.DisconnectAll(peerID) {
		r.afterDeparture(dep)
	}
	r.logger.Debug("peer unregistered", zap.String("peer", peerID))
}

// afterDeparture propagates one member's exit from one room: pending state
// requests are untangled and remaining members get room:user_left.
func (r *Relay) afterDeparture(dep room.Departure) {
	if !dep.Deleted {
		r.broadcast(dep.RoomID, protocol.EventUserLeft, protocol.UserLeft{
			UserID:    dep.MemberID,
			Timestamp: time.Now().UnixMilli(),
		}, dep.MemberID)
	}

	p, ok := r.pending[dep.RoomID]
	if !ok {
		return
	}
	if dep.Deleted {
		p.timer.Stop()
		delete(r.pending, dep.RoomID)
		return
	}
	p.dropRequester(dep.MemberID)
	if len(p.requesters) == 0 {
		p.timer.Stop()
		delete(r.pending, dep.RoomID)
	} else if p.donor == dep.MemberID {
		// The member we asked for a snapshot is gone; move on now
		// instead of waiting out the timer.
		p.timer.Stop()
		r.advanceStateRequest(dep.RoomID)
	}
}

func (r *Relay) handleDraw(peerID string, env protocol.Envelope) {
	var ev protocol.DrawEvent
	if err := env.DecodeInto(&ev); err != nil {
		r.logger.Debug("bad draw payload", zap.String("peer", peerID), zap.Error(err))
		return
	}
	if !r.registry.IsMember(ev.RoomID, peerID) {
		return
	}
	if err := r.validator.ValidateDraw(&ev); err != nil {
		r.logger.Debug("rejected draw event", zap.String("peer", peerID), zap.Error(err))
		return
	}

	ev.RoomID = room.Normalize(ev.RoomID)
	ev.UserID = peerID
	r.broadcast(ev.RoomID, env.Event, ev, peerID)
}

func (r *Relay) handleClear(peerID, roomID string) {
	if !r.registry.IsMember(roomID, peerID) {
		return
	}
	roomID = room.Normalize(roomID)
	r.registry.ClearSnapshot(roomID)
	// Sender-inclusive so every member clears from the same event.
	r.broadcast(roomID, protocol.EventDrawClear, nil, "")
}

func (r *Relay) handleStateRequest(peerID, roomID string) {
	if !r.registry.IsMember(roomID, peerID) {
		return
	}
	r.beginStateRequest(room.Normalize(roomID), peerID)
}

// beginStateRequest asks an existing member (any member other than the
// requester) to push its locally rendered snapshot. With no such member the
// request is silently dropped and the requester keeps its current canvas.
func (r *Relay) beginStateRequest(roomID, requester string) {
	if p, ok := r.pending[roomID]; ok {
		p.addRequester(requester)
		return
	}

	p := &stateRequest{
		requesters: []string{requester},
		tried:      make(map[string]bool),
	}
	donor := r.pickDonor(roomID, p)
	if donor == "" {
		return
	}
	r.pending[roomID] = p
	r.askDonor(roomID, p, donor)
}

// advanceStateRequest runs when a donor did not answer in time: try the next
// untried member, and with none left settle on the cached snapshot (or a
// blank canvas) so the requester is never stuck waiting.
func (r *Relay) advanceStateRequest(roomID string) {
	p, ok := r.pending[roomID]
	if !ok {
		return
	}

	if donor := r.pickDonor(roomID, p); donor != "" {
		r.logger.Debug("state request donor timed out, retrying",
			zap.String("room", roomID), zap.String("next", donor))
		r.askDonor(roomID, p, donor)
		return
	}

	delete(r.pending, roomID)
	snapshot := r.registry.Snapshot(roomID)
	r.logger.Debug("state request exhausted donors",
		zap.String("room", roomID), zap.Bool("cached", snapshot != ""))
	for _, requester := range p.requesters {
		r.sendTo(requester, protocol.EventStateUpdate, protocol.StateUpdate{
			RoomID:    roomID,
			ImageData: snapshot,
		})
	}
}

func (r *Relay) askDonor(roomID string, p *stateRequest, donor string) {
	p.donor = donor
	p.tried[donor] = true
	p.timer = time.AfterFunc(r.requestTimeout, func() {
		select {
		case r.expired <- roomID:
		case <-r.done:
		}
	})
	r.sendTo(donor, protocol.EventRequestState, roomID)
}

// pickDonor returns an untried member of the room that is not a requester.
func (r *Relay) pickDonor(roomID string, p *stateRequest) string {
	for _, id := range r.registry.Members(roomID) {
		if p.tried[id] || p.isRequester(id) {
			continue
		}
		return id
	}
	return ""
}

func (r *Relay) handleStateUpdate(peerID string, env protocol.Envelope) {
	var update protocol.StateUpdate
	if err := env.DecodeInto(&update); err != nil {
		r.logger.Debug("bad state update payload", zap.String("peer", peerID), zap.Error(err))
		return
	}
	if !r.registry.IsMember(update.RoomID, peerID) {
		return
	}

	roomID := room.Normalize(update.RoomID)
	update.RoomID = roomID
	r.registry.SetSnapshot(roomID, update.ImageData)

	p, ok := r.pending[roomID]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(r.pending, roomID)
	for _, requester := range p.requesters {
		if requester == peerID {
			continue
		}
		r.sendTo(requester, protocol.EventStateUpdate, update)
	}
}

func (r *Relay) handleChat(peerID string, env protocol.Envelope) {
	var msg protocol.ChatInbound
	if err := env.DecodeInto(&msg); err != nil {
		r.logger.Debug("bad chat payload", zap.String("peer", peerID), zap.Error(err))
		return
	}
	if !r.registry.IsMember(msg.RoomID, peerID) {
		return
	}
	text, err := r.validator.ValidateChat(&msg)
	if err != nil {
		r.logger.Debug("rejected chat message", zap.String("peer", peerID), zap.Error(err))
		return
	}

	// Sender-inclusive; identity and timestamp are stamped here, never
	// trusted from the client.
	r.broadcast(room.Normalize(msg.RoomID), protocol.EventChatMessage, protocol.ChatOutbound{
		UserID:    peerID,
		Message:   text,
		Timestamp: time.Now().UnixMilli(),
	}, "")
}

// sendTo delivers one event to one member.
func (r *Relay) sendTo(memberID, event string, payload interface{}) {
	data, ok := r.encode(event, payload)
	if !ok {
		return
	}
	peer, present := r.peers[memberID]
	if !present {
		return
	}
	if !peer.Send(data) {
		r.handleDisconnect(memberID)
	}
}

// broadcast relays one event to every member of a room, excluding at most
// one sender. Members whose queues are gone are cleaned up afterwards.
func (r *Relay) broadcast(roomID, event string, payload interface{}, exclude string) {
	data, ok := r.encode(event, payload)
	if !ok {
		return
	}

	var failed []string
	for _, memberID := range r.registry.Members(roomID) {
		if memberID == exclude {
			continue
		}
		peer, present := r.peers[memberID]
		if !present {
			continue
		}
		if !peer.Send(data) {
			failed = append(failed, memberID)
		}
	}
	for _, memberID := range failed {
		r.logger.Warn("dropping unresponsive peer", zap.String("peer", memberID))
		r.handleDisconnect(memberID)
	}
}

func (r *Relay) encode(event string, payload interface{}) ([]byte, bool) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		r.logger.Error("encode envelope", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	data, err := env.Encode()
	if err != nil {
		r.logger.Error("encode envelope", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (p *stateRequest) addRequester(memberID string) {
	if p.isRequester(memberID) {
		return
	}
	p.requesters = append(p.requesters, memberID)
}

func (p *stateRequest) dropRequester(memberID string) {
	for i, id := range p.requesters {
		if id == memberID {
			p.requesters = append(p.requesters[:i], p.requesters[i+1:]...)
			return
		}
	}
}

func (p *stateRequest) isRequester(memberID string) bool {
	for _, id := range p.requesters {
		if id == memberID {
			return true
		}
	}
	return false
}
