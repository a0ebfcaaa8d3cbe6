package room

import (
	"strings"

	"go.uber.org/zap"

	"github.com/segfal/whiteboard/internal/models"
)

// Registry is the authoritative bookkeeping of room membership and the one
// cached snapshot per room. Room existence is derived entirely from a
// non-empty member set. All mutation happens on the relay goroutine, so the
// registry carries no locks by construction.
type Registry struct {
	rooms     map[string]*Room
	byMember  map[string]string // member id -> room id
	snapshots *SnapshotCache
	logger    *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		byMember:  make(map[string]string),
		snapshots: NewSnapshotCache(logger),
		logger:    logger,
	}
}

// Normalize folds a human-entered room id to its canonical form.
// Room ids are case-insensitive.
func Normalize(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}

// JoinResult describes the outcome of a Join.
type JoinResult struct {
	RoomID  string
	Member  *models.Member
	Roster  []string
	Colors  map[string]string
	Created bool
	Rejoin  bool

	// AutoLeft is set when the member was still in another room and the
	// registry moved it out first. A connection is in at most one room.
	AutoLeft *Departure
}

// Departure describes a member leaving a room.
type Departure struct {
	RoomID    string
	MemberID  string
	Remaining []string
	Deleted   bool
}

// Join adds a member to a room, creating the room if absent. Joining a room
// the member is already in just returns the current roster.
func (reg *Registry) Join(roomID, memberID string) (JoinResult, bool) {
	roomID = Normalize(roomID)
	if roomID == "" || memberID == "" {
		return JoinResult{}, false
	}

	res := JoinResult{RoomID: roomID}

	if prev, ok := reg.byMember[memberID]; ok {
		if prev == roomID {
			rm := reg.rooms[roomID]
			res.Member = rm.Members[memberID]
			res.Roster = rm.Roster()
			res.Colors = rm.Colors()
			res.Rejoin = true
			return res, true
		}
		if dep, ok := reg.Leave(prev, memberID); ok {
			res.AutoLeft = &dep
		}
	}

	rm, ok := reg.rooms[roomID]
	if !ok {
		rm = NewRoom(roomID)
		reg.rooms[roomID] = rm
		res.Created = true
		reg.logger.Debug("room created", zap.String("room", roomID))
	}

	res.Member = rm.Add(memberID)
	reg.byMember[memberID] = roomID
	res.Roster = rm.Roster()
	res.Colors = rm.Colors()
	reg.logger.Info("member joined room",
		zap.String("room", roomID),
		zap.String("member", memberID),
		zap.Int("members", len(rm.Members)))
	return res, true
}

// Leave removes a member from a room. Idempotent: leaving a room the member
// is not in is a no-op. When the last member leaves, the room and its
// snapshot are deleted.
func (reg *Registry) Leave(roomID, memberID string) (Departure, bool) {
	roomID = Normalize(roomID)
	rm, ok := reg.rooms[roomID]
	if !ok || !rm.Remove(memberID) {
		return Departure{}, false
	}

	delete(reg.byMember, memberID)
	dep := Departure{RoomID: roomID, MemberID: memberID, Remaining: rm.Roster()}

	if rm.Empty() {
		delete(reg.rooms, roomID)
		reg.snapshots.Delete(roomID)
		dep.Deleted = true
		reg.logger.Debug("room deleted", zap.String("room", roomID))
	}

	reg.logger.Info("member left room",
		zap.String("room", roomID),
		zap.String("member", memberID),
		zap.Bool("deleted", dep.Deleted))
	return dep, true
}

// DisconnectAll removes a member from every room it can be found in. A
// connection is in at most one room, so the scan after the index lookup
// normally finds nothing.
func (reg *Registry) DisconnectAll(memberID string) []Departure {
	var deps []Departure
	if roomID, ok := reg.byMember[memberID]; ok {
		if dep, ok := reg.Leave(roomID, memberID); ok {
			deps = append(deps, dep)
		}
	}
	for roomID, rm := range reg.rooms {
		if rm.Has(memberID) {
			if dep, ok := reg.Leave(roomID, memberID); ok {
				deps = append(deps, dep)
			}
		}
	}
	return deps
}

// RoomOf returns the room a member is currently in.
func (reg *Registry) RoomOf(memberID string) (string, bool) {
	roomID, ok := reg.byMember[memberID]
	return roomID, ok
}

// IsMember reports whether the member is in the given room.
func (reg *Registry) IsMember(roomID, memberID string) bool {
	rm, ok := reg.rooms[Normalize(roomID)]
	return ok && rm.Has(memberID)
}

// Members returns the roster of a room, empty when the room does not exist.
func (reg *Registry) Members(roomID string) []string {
	rm, ok := reg.rooms[Normalize(roomID)]
	if !ok {
		return nil
	}
	return rm.Roster()
}

// Has reports whether the room exists.
func (reg *Registry) Has(roomID string) bool {
	_, ok := reg.rooms[Normalize(roomID)]
	return ok
}

// SetSnapshot overwrites the cached snapshot unconditionally. Last write
// wins; there is no version check.
func (reg *Registry) SetSnapshot(roomID, snapshot string) {
	reg.snapshots.Set(Normalize(roomID), snapshot)
}

// Snapshot returns the cached snapshot, or empty when none was pushed.
func (reg *Registry) Snapshot(roomID string) string {
	return reg.snapshots.Get(Normalize(roomID))
}

// ClearSnapshot resets the cached snapshot to empty.
func (reg *Registry) ClearSnapshot(roomID string) {
	reg.snapshots.Delete(Normalize(roomID))
}
