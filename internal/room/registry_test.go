package room

import (
	"testing"

	"go.uber.org/zap"
)

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop())
}

func TestJoinCreatesRoom(t *testing.T) {
	reg := newTestRegistry()

	res, ok := reg.Join("ABC123", "m1")
	if !ok {
		t.Fatal("join failed")
	}
	if !res.Created {
		t.Error("expected room to be created on first join")
	}
	if len(res.Roster) != 1 || res.Roster[0] != "m1" {
		t.Errorf("roster = %v, want exactly the joiner", res.Roster)
	}
	if res.Member.Color == "" {
		t.Error("expected a presence color to be assigned")
	}
	if !reg.Has("ABC123") {
		t.Error("room should exist after join")
	}
}

func TestRoomIDsAreCaseInsensitive(t *testing.T) {
	reg := newTestRegistry()

	reg.Join("abc123", "m1")
	if !reg.IsMember("ABC123", "m1") {
		t.Error("lowercase and uppercase ids should address the same room")
	}
	res, _ := reg.Join("Abc123", "m2")
	if len(res.Roster) != 2 {
		t.Errorf("roster = %v, want both members in one room", res.Roster)
	}
}

func TestJoinThenLeaveDeletesRoom(t *testing.T) {
	reg := newTestRegistry()

	reg.Join("R1", "m1")
	dep, ok := reg.Leave("R1", "m1")
	if !ok {
		t.Fatal("leave failed")
	}
	if !dep.Deleted {
		t.Error("room should be deleted when the last member leaves")
	}
	if reg.Has("R1") {
		t.Error("room still present after emptiness")
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	reg := newTestRegistry()

	reg.Join("R1", "m1")
	if _, ok := reg.Leave("R1", "m2"); ok {
		t.Error("leaving a room one is not in must be a no-op")
	}
	if _, ok := reg.Leave("NOPE", "m1"); ok {
		t.Error("leaving a nonexistent room must be a no-op")
	}
	if !reg.IsMember("R1", "m1") {
		t.Error("no-op leave must not disturb membership")
	}
}

func TestLeaveOrderScenario(t *testing.T) {
	reg := newTestRegistry()

	reg.Join("R1", "x")
	reg.Join("R1", "y")

	dep, ok := reg.Leave("R1", "x")
	if !ok || dep.Deleted {
		t.Fatalf("room must survive with a remaining member, dep = %+v", dep)
	}
	if len(dep.Remaining) != 1 || dep.Remaining[0] != "y" {
		t.Errorf("remaining = %v, want [y]", dep.Remaining)
	}

	dep, ok = reg.Leave("R1", "y")
	if !ok || !dep.Deleted {
		t.Fatalf("room must be deleted after last member leaves, dep = %+v", dep)
	}
	if reg.Has("R1") {
		t.Error("registry still knows R1")
	}
}

func TestJoinAutoLeavesPreviousRoom(t *testing.T) {
	reg := newTestRegistry()

	reg.Join("R1", "m1")
	reg.Join("R1", "m2")

	res, ok := reg.Join("R2", "m1")
	if !ok {
		t.Fatal("second join failed")
	}
	if res.AutoLeft == nil {
		t.Fatal("expected the registry to move the member out of R1")
	}
	if res.AutoLeft.RoomID != "R1" {
		t.Errorf("auto-left room = %q, want R1", res.AutoLeft.RoomID)
	}
	if reg.IsMember("R1", "m1") {
		t.Error("member must not remain in two rooms")
	}
	if got, _ := reg.RoomOf("m1"); got != "R2" {
		t.Errorf("RoomOf = %q, want R2", got)
	}
}

func TestRejoinSameRoomIsStable(t *testing.T) {
	reg := newTestRegistry()

	first, _ := reg.Join("R1", "m1")
	again, _ := reg.Join("R1", "m1")
	if !again.Rejoin {
		t.Error("expected rejoin to be flagged")
	}
	if len(again.Roster) != 1 {
		t.Errorf("roster = %v, rejoin must not duplicate the member", again.Roster)
	}
	if again.Member.Color != first.Member.Color {
		t.Error("rejoin must keep the assigned color")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	reg := newTestRegistry()
	reg.Join("R1", "m1")

	if got := reg.Snapshot("R1"); got != "" {
		t.Errorf("fresh room snapshot = %q, want empty", got)
	}

	reg.SetSnapshot("R1", "base64blob")
	if got := reg.Snapshot("R1"); got != "base64blob" {
		t.Errorf("snapshot = %q, want base64blob", got)
	}

	// Last write wins, no version check.
	reg.SetSnapshot("R1", "newer")
	if got := reg.Snapshot("R1"); got != "newer" {
		t.Errorf("snapshot = %q, want newer", got)
	}

	reg.ClearSnapshot("R1")
	if got := reg.Snapshot("R1"); got != "" {
		t.Errorf("cleared snapshot = %q, want empty", got)
	}
}

func TestSnapshotDiesWithRoom(t *testing.T) {
	reg := newTestRegistry()

	reg.Join("R1", "m1")
	reg.SetSnapshot("R1", "blob")
	reg.Leave("R1", "m1")

	// Recreating the room must not resurrect the old canvas.
	reg.Join("R1", "m2")
	if got := reg.Snapshot("R1"); got != "" {
		t.Errorf("snapshot survived room deletion: %q", got)
	}
}

func TestDisconnectAll(t *testing.T) {
	reg := newTestRegistry()

	reg.Join("R1", "m1")
	reg.Join("R1", "m2")

	deps := reg.DisconnectAll("m1")
	if len(deps) != 1 {
		t.Fatalf("departures = %d, want 1", len(deps))
	}
	if deps[0].RoomID != "R1" || deps[0].Deleted {
		t.Errorf("unexpected departure %+v", deps[0])
	}
	if reg.IsMember("R1", "m1") {
		t.Error("member still present after disconnect")
	}

	if deps := reg.DisconnectAll("m1"); len(deps) != 0 {
		t.Errorf("second disconnect produced departures: %v", deps)
	}
}

func TestDistinctPresenceColors(t *testing.T) {
	reg := newTestRegistry()

	seen := make(map[string]bool)
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		res, _ := reg.Join("R1", id)
		if seen[res.Member.Color] {
			t.Errorf("color %q assigned twice", res.Member.Color)
		}
		seen[res.Member.Color] = true
	}
}
