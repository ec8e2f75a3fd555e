package controller

import (
	"errors"
	"testing"
)

func TestRequestPositionEmitsOnChange(t *testing.T) {
	pub := &fakePublisher{}
	a := NewActuator(pub)

	if !a.RequestPosition("gh-1", PositionOpen) {
		t.Fatal("first OPEN must emit a command")
	}
	if got := pub.published(); len(got) != 1 || got[0] != "OPEN" {
		t.Fatalf("published = %v, want [OPEN]", got)
	}
	if pub.Topics[0] != "greenhouse/gh-1/servo" {
		t.Errorf("topic = %q", pub.Topics[0])
	}
	if a.CurrentPosition("gh-1") != PositionOpen {
		t.Errorf("tracked state = %v", a.CurrentPosition("gh-1"))
	}
}

func TestRequestPositionIdempotent(t *testing.T) {
	pub := &fakePublisher{}
	a := NewActuator(pub)

	a.RequestPosition("gh-1", PositionOpen)
	if a.RequestPosition("gh-1", PositionOpen) {
		t.Fatal("repeated identical target must be a no-op")
	}
	if len(pub.published()) != 1 {
		t.Fatalf("published %d commands, want 1", len(pub.published()))
	}
}

func TestRequestPositionTransition(t *testing.T) {
	pub := &fakePublisher{}
	a := NewActuator(pub)

	a.RequestPosition("gh-1", PositionOpen)
	a.RequestPosition("gh-1", PositionClosed)
	a.RequestPosition("gh-1", PositionClosed)

	if got := pub.published(); len(got) != 2 || got[1] != "CLOSED" {
		t.Fatalf("published = %v, want [OPEN CLOSED]", got)
	}
}

func TestRequestPositionPerDeviceState(t *testing.T) {
	pub := &fakePublisher{}
	a := NewActuator(pub)

	a.RequestPosition("gh-1", PositionOpen)
	if !a.RequestPosition("gh-2", PositionOpen) {
		t.Fatal("gh-2 has its own state and must emit")
	}
	if a.CurrentPosition("gh-2") != PositionOpen || a.CurrentPosition("gh-3") != PositionUnknown {
		t.Error("per-device states leaked")
	}
}

func TestRequestPositionRejectsUnknownTarget(t *testing.T) {
	pub := &fakePublisher{}
	a := NewActuator(pub)

	if a.RequestPosition("gh-1", PositionUnknown) {
		t.Fatal("UNKNOWN is not a commandable target")
	}
	if len(pub.published()) != 0 {
		t.Fatal("no command must be published")
	}
}

func TestRequestPositionPublishErrorStillAdvancesState(t *testing.T) {
	pub := &fakePublisher{Err: errors.New("broker down")}
	a := NewActuator(pub)

	a.RequestPosition("gh-1", PositionOpen)
	if a.CurrentPosition("gh-1") != PositionOpen {
		t.Fatal("state must advance even when publish fails")
	}
	// A later identical decision must not re-issue.
	if a.RequestPosition("gh-1", PositionOpen) {
		t.Fatal("failed publish must not cause re-issue on identical target")
	}
}

func TestPositionString(t *testing.T) {
	if PositionOpen.String() != "OPEN" || PositionClosed.String() != "CLOSED" || PositionUnknown.String() != "UNKNOWN" {
		t.Error("unexpected Position strings")
	}
}
