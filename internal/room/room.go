package room

import (
	"sort"
	"time"

	"github.com/segfal/whiteboard/internal/models"
)

// Room is a named, ephemeral collaboration session. It exists exactly as
// long as it has members; the Registry deletes it when the last one leaves.
type Room struct {
	// ID is the normalized room identifier.
	ID string

	// Members maps member ids to their room-scoped presence state.
	Members map[string]*models.Member

	// CreatedAt is when the first member joined.
	CreatedAt time.Time

	colors *ColorWheel
}

// NewRoom creates an empty room.
func NewRoom(id string) *Room {
	return &Room{
		ID:        id,
		Members:   make(map[string]*models.Member),
		CreatedAt: time.Now(),
		colors:    NewColorWheel(),
	}
}

// Add inserts a member, assigning a presence color on first entry.
// Re-adding an existing member returns the existing state.
func (r *Room) Add(memberID string) *models.Member {
	if m, ok := r.Members[memberID]; ok {
		return m
	}
	m := &models.Member{
		ID:       memberID,
		Color:    r.colors.Next(),
		JoinedAt: time.Now(),
	}
	r.Members[memberID] = m
	return m
}

// Remove deletes a member and reports whether it was present.
func (r *Room) Remove(memberID string) bool {
	if _, ok := r.Members[memberID]; !ok {
		return false
	}
	delete(r.Members, memberID)
	return true
}

func (r *Room) Has(memberID string) bool {
	_, ok := r.Members[memberID]
	return ok
}

func (r *Room) Empty() bool {
	return len(r.Members) == 0
}

// Roster returns member ids in a stable order.
func (r *Room) Roster() []string {
	ids := make([]string, 0, len(r.Members))
	for id := range r.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Colors returns the member id to presence color mapping.
func (r *Room) Colors() map[string]string {
	colors := make(map[string]string, len(r.Members))
	for id, m := range r.Members {
		colors[id] = m.Color
	}
	return colors
}
