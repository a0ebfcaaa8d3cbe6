package client

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type scriptedCodec struct {
	data         string
	serializeErr error
	restoreErr   error
	restored     []string
}

func (c *scriptedCodec) Serialize() (string, error) {
	return c.data, c.serializeErr
}

func (c *scriptedCodec) Restore(snapshot string) error {
	if c.restoreErr != nil {
		return c.restoreErr
	}
	c.data = snapshot
	c.restored = append(c.restored, snapshot)
	return nil
}

func TestSaveStateNotifiesObserversInOrder(t *testing.T) {
	codec := &scriptedCodec{data: "frame1"}
	s := NewStateSync(codec, zap.NewNop())

	var order []string
	s.Subscribe(func(snapshot string) { order = append(order, "first:"+snapshot) })
	s.Subscribe(func(snapshot string) { order = append(order, "second:"+snapshot) })

	var pushed []string
	s.setPusher(func(snapshot string) { pushed = append(pushed, snapshot) })

	s.SaveState()

	want := []string{"first:frame1", "second:frame1"}
	if len(order) != len(want) {
		t.Fatalf("observer calls = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("observer call %d = %q, want %q", i, order[i], want[i])
		}
	}
	if len(pushed) != 1 || pushed[0] != "frame1" {
		t.Errorf("pushed = %v, want exactly one push of frame1", pushed)
	}
	if s.Current() != "frame1" {
		t.Errorf("Current() = %q, want frame1", s.Current())
	}
}

func TestSaveStateSerializationFailureSkipsEverything(t *testing.T) {
	codec := &scriptedCodec{serializeErr: errors.New("canvas detached")}
	s := NewStateSync(codec, zap.NewNop())

	called := false
	s.Subscribe(func(string) { called = true })
	s.setPusher(func(string) { called = true })

	s.SaveState()

	if called {
		t.Error("observers or pusher ran despite a serialization failure")
	}
	if s.Current() != "" {
		t.Errorf("Current() = %q, want unchanged empty state", s.Current())
	}
}

func TestApplyReplacesCanvasDestructively(t *testing.T) {
	codec := &scriptedCodec{data: "local-unsaved"}
	s := NewStateSync(codec, zap.NewNop())

	if err := s.Apply("remote-snapshot"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if codec.data != "remote-snapshot" {
		t.Errorf("canvas = %q, want the remote snapshot", codec.data)
	}
	if s.Current() != "remote-snapshot" {
		t.Errorf("Current() = %q, want remote-snapshot", s.Current())
	}

	// A blank snapshot is valid: it clears the canvas.
	if err := s.Apply(""); err != nil {
		t.Fatalf("Apply blank: %v", err)
	}
	if codec.data != "" {
		t.Errorf("canvas = %q, want cleared", codec.data)
	}
}

func TestApplyRestoreFailureLeavesStateAlone(t *testing.T) {
	codec := &scriptedCodec{data: "frame1"}
	s := NewStateSync(codec, zap.NewNop())
	s.SaveState()

	codec.restoreErr = errors.New("corrupt snapshot")
	if err := s.Apply("garbage"); err == nil {
		t.Fatal("Apply accepted a snapshot the codec rejected")
	}
	if s.Current() != "frame1" {
		t.Errorf("Current() = %q, want the pre-failure state", s.Current())
	}
}

func TestObserversSeeEverySave(t *testing.T) {
	codec := &scriptedCodec{data: "a"}
	s := NewStateSync(codec, zap.NewNop())

	var seen []string
	s.Subscribe(func(snapshot string) { seen = append(seen, snapshot) })

	s.SaveState()
	codec.data = "b"
	s.SaveState()

	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("seen = %v, want [a b]", seen)
	}
}

func TestMemoryCanvasRoundTrip(t *testing.T) {
	var c MemoryCanvas
	c.Put("strokes")

	got, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if got != "strokes" {
		t.Errorf("Serialize = %q, want strokes", got)
	}

	if err := c.Restore("other"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got, _ := c.Serialize(); got != "other" {
		t.Errorf("after Restore, Serialize = %q, want other", got)
	}
}
