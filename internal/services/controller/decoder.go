package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/greenklok/greenhouse-core/internal/model/messages"
)

var (
	ErrMalformedPayload  = errors.New("decoder: malformed payload")
	ErrIncompleteReading = errors.New("decoder: incomplete reading")
)

// rawTelemetry mirrors the device firmware's wire format. Pointer fields
// distinguish "absent" from zero.
type rawTelemetry struct {
	Temperature     *float64        `json:"temperatura"`
	HumidityAir     *float64        `json:"humedad_aire"`
	HumiditySoilRaw *float64        `json:"humedad_suelo_raw"`
	Light           *float64        `json:"luz_lux"`
	Timestamp       json.RawMessage `json:"timestamp"`
}

// DecodeReading parses and validates a raw telemetry payload for one
// greenhouse. All four numeric fields are required; a reading missing any of
// them is never constructed. A missing or malformed source timestamp falls
// back to the decode-time clock (logged, so the substitution is visible).
func DecodeReading(greenhouseID string, payload []byte, now time.Time) (messages.SensorReading, error) {
	var raw rawTelemetry
	if err := json.Unmarshal(payload, &raw); err != nil {
		return messages.SensorReading{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if raw.Temperature == nil || raw.HumidityAir == nil || raw.HumiditySoilRaw == nil || raw.Light == nil {
		return messages.SensorReading{}, ErrIncompleteReading
	}

	ts, ok := parseTimestamp(raw.Timestamp, now)
	if !ok {
		log.Printf("decoder: %s: unusable source timestamp %s, using decode-time clock", greenhouseID, raw.Timestamp)
	}

	return messages.SensorReading{
		GreenhouseID: greenhouseID,
		Temperature:  *raw.Temperature,
		HumidityAir:  *raw.HumidityAir,
		HumiditySoil: *raw.HumiditySoilRaw,
		Light:        *raw.Light,
		Timestamp:    ts,
	}, nil
}

// parseTimestamp accepts an RFC3339 string or unix seconds number. Anything
// else yields the fallback clock and ok=false.
func parseTimestamp(raw json.RawMessage, fallback time.Time) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback, true // absent is expected, not worth a log line
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
		return fallback, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		sec := int64(n)
		nsec := int64((n - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), true
	}

	return fallback, false
}
