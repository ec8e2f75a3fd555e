package controller

import (
	"log"
	"sync"

	"github.com/greenklok/greenhouse-core/internal/metrics"
	"github.com/greenklok/greenhouse-core/pkg/mqttclient"
	"github.com/greenklok/greenhouse-core/pkg/topics"
)

// Position is the tracked state of one roof actuator.
type Position int

const (
	PositionUnknown Position = iota
	PositionOpen
	PositionClosed
)

func (p Position) String() string {
	switch p {
	case PositionOpen:
		return "OPEN"
	case PositionClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Actuator tracks the last commanded roof position per greenhouse and emits
// a servo command only on change. Delivery guarantees belong to the broker;
// emission here is fire-and-forget.
type Actuator struct {
	publisher mqttclient.IPublisher

	mu    sync.Mutex
	state map[string]Position
}

func NewActuator(publisher mqttclient.IPublisher) *Actuator {
	return &Actuator{
		publisher: publisher,
		state:     make(map[string]Position),
	}
}

// RequestPosition publishes one command when target differs from the tracked
// state. It reports whether a command was emitted. Repeated identical
// targets never re-issue a command.
func (a *Actuator) RequestPosition(greenhouseID string, target Position) bool {
	if target != PositionOpen && target != PositionClosed {
		return false
	}

	a.mu.Lock()
	current := a.state[greenhouseID]
	if target == current {
		a.mu.Unlock()
		return false
	}
	a.state[greenhouseID] = target
	a.mu.Unlock()

	topic, err := topics.For(greenhouseID, topics.Servo)
	if err != nil {
		log.Printf("actuator: bad greenhouse id %q: %v", greenhouseID, err)
		return false
	}
	if err := a.publisher.PublishTo(topic, 0, false, target.String()); err != nil {
		// State still advanced: the attempt happened once, and re-issuing on
		// every later identical decision would double-command a healthy servo.
		log.Printf("actuator: publish %s to %s failed: %v", target, topic, err)
		return true
	}
	metrics.ActuatorCommands.WithLabelValues(target.String()).Inc()
	log.Printf("actuator: %s -> %s", topic, target)
	return true
}

// CurrentPosition returns the tracked state for a greenhouse, PositionUnknown
// until the first command.
func (a *Actuator) CurrentPosition(greenhouseID string) Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state[greenhouseID]
}
