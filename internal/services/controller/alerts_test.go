package controller

import (
	"errors"
	"testing"
	"time"
)

func newTestDispatcher(m *fakeMailer, cooldown time.Duration) (*Dispatcher, *time.Time) {
	d := NewDispatcher(m, "ops@example.com", cooldown)
	clock := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }
	return d, &clock
}

func TestMaybeSendFirstAlert(t *testing.T) {
	m := &fakeMailer{}
	d, _ := newTestDispatcher(m, 10*time.Minute)

	if !d.MaybeSend("gh-1", ClassAnomaly, "subject", "body") {
		t.Fatal("first alert must be sent")
	}
	sent := m.sent()
	if len(sent) != 1 || sent[0].To != "ops@example.com" || sent[0].Subject != "subject" {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestMaybeSendSuppressedWithinCooldown(t *testing.T) {
	m := &fakeMailer{}
	d, clock := newTestDispatcher(m, 10*time.Minute)

	d.MaybeSend("gh-1", ClassAnomaly, "s", "b")
	*clock = clock.Add(5 * time.Minute)
	if d.MaybeSend("gh-1", ClassAnomaly, "s", "b") {
		t.Fatal("second alert within cooldown must be suppressed")
	}
	if len(m.sent()) != 1 {
		t.Fatalf("transmissions = %d, want exactly 1", len(m.sent()))
	}
}

func TestMaybeSendAfterCooldownElapsed(t *testing.T) {
	m := &fakeMailer{}
	d, clock := newTestDispatcher(m, 10*time.Minute)

	d.MaybeSend("gh-1", ClassAnomaly, "s", "b")
	*clock = clock.Add(10 * time.Minute)
	if !d.MaybeSend("gh-1", ClassAnomaly, "s", "b") {
		t.Fatal("alert after cooldown elapsed must be sent")
	}
}

func TestCooldownsIndependentPerClass(t *testing.T) {
	m := &fakeMailer{}
	d, _ := newTestDispatcher(m, 10*time.Minute)

	d.MaybeSend("gh-1", ClassAnomaly, "s", "b")
	if !d.MaybeSend("gh-1", ClassSensorFault, "s", "b") {
		t.Fatal("suppressing anomaly must not suppress sensorFault")
	}
	if !d.MaybeSend("gh-1", ClassThermalHigh, "s", "b") {
		t.Fatal("thermalHigh has its own timer")
	}
	if !d.MaybeSend("gh-1", ClassThermalLow, "s", "b") {
		t.Fatal("thermalLow has its own timer")
	}
	if len(m.sent()) != 4 {
		t.Fatalf("transmissions = %d, want 4", len(m.sent()))
	}
}

func TestCooldownsIndependentPerDevice(t *testing.T) {
	m := &fakeMailer{}
	d, _ := newTestDispatcher(m, 10*time.Minute)

	d.MaybeSend("gh-1", ClassAnomaly, "s", "b")
	if !d.MaybeSend("gh-2", ClassAnomaly, "s", "b") {
		t.Fatal("gh-2 must not share gh-1's cooldown")
	}
}

func TestTransmissionFailureDoesNotRevertCooldown(t *testing.T) {
	m := &fakeMailer{Err: errors.New("smtp unreachable")}
	d, _ := newTestDispatcher(m, 10*time.Minute)

	if !d.MaybeSend("gh-1", ClassAnomaly, "s", "b") {
		t.Fatal("a failed transmission still counts as an initiated send")
	}
	if d.MaybeSend("gh-1", ClassAnomaly, "s", "b") {
		t.Fatal("cooldown must stand even though the transmission failed")
	}
	if len(m.sent()) != 1 {
		t.Fatalf("transmission attempts = %d, want 1", len(m.sent()))
	}
}
