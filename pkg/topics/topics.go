// Package topics centralizes the broker topic naming convention so it can
// be unit-tested independent of the transport.
package topics

import (
	"errors"
	"fmt"
	"strings"
)

// Purpose selects which per-greenhouse channel a topic addresses.
type Purpose int

const (
	SensorData Purpose = iota
	Servo
	Irrigation
)

var suffixes = map[Purpose]string{
	SensorData: "sensorData",
	Servo:      "servo",
	Irrigation: "riego",
}

var (
	ErrEmptyGreenhouseID = errors.New("topics: empty greenhouse id")
	ErrUnknownPurpose    = errors.New("topics: unknown purpose")
)

const prefix = "greenhouse"

// For builds the concrete topic for one greenhouse and channel purpose.
func For(greenhouseID string, p Purpose) (string, error) {
	id := strings.TrimSpace(greenhouseID)
	if id == "" {
		return "", ErrEmptyGreenhouseID
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("topics: invalid greenhouse id %q", greenhouseID)
	}
	suffix, ok := suffixes[p]
	if !ok {
		return "", ErrUnknownPurpose
	}
	return prefix + "/" + id + "/" + suffix, nil
}

// Filter returns the single-level wildcard form matching every greenhouse.
func Filter(p Purpose) (string, error) {
	suffix, ok := suffixes[p]
	if !ok {
		return "", ErrUnknownPurpose
	}
	return prefix + "/+/" + suffix, nil
}

// GreenhouseID extracts the greenhouse id from a concrete topic, if the
// topic follows the convention.
func GreenhouseID(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != prefix || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
