package messages

import (
	"fmt"
	"time"
)

// SensorReading is one validated telemetry sample from a greenhouse unit.
// It is constructed only by the telemetry decoder and never mutated after.
type SensorReading struct {
	GreenhouseID string    `json:"greenhouse_id"`
	Temperature  float64   `json:"temperature"`
	HumidityAir  float64   `json:"humidity_air"`
	HumiditySoil float64   `json:"humidity_soil"`
	Light        float64   `json:"light"`
	Timestamp    time.Time `json:"timestamp"`
}

// Sensor type tags accepted by Value.
const (
	SensorTemperature  = "temperature"
	SensorHumidityAir  = "humidity_air"
	SensorHumiditySoil = "humidity_soil"
	SensorLight        = "light"
)

// Value returns the field named by a sensor-type tag. The tag set is closed;
// unknown tags are an error, not a zero value.
func (r SensorReading) Value(sensorType string) (float64, error) {
	switch sensorType {
	case SensorTemperature:
		return r.Temperature, nil
	case SensorHumidityAir:
		return r.HumidityAir, nil
	case SensorHumiditySoil:
		return r.HumiditySoil, nil
	case SensorLight:
		return r.Light, nil
	default:
		return 0, fmt.Errorf("unknown sensor type %q", sensorType)
	}
}
