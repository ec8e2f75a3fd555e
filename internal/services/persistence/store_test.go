package persistence

import (
	"strings"
	"testing"
	"time"

	"github.com/greenklok/greenhouse-core/internal/model/messages"
)

func TestReadingToPoint(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	r := messages.SensorReading{
		GreenhouseID: "gh-1",
		Temperature:  23.4,
		HumidityAir:  51,
		HumiditySoil: 330,
		Light:        750,
		Timestamp:    ts,
	}
	p := readingToPoint("sensor_reading", r)

	if p.Name() != "sensor_reading" {
		t.Errorf("measurement = %q", p.Name())
	}
	if !p.Time().Equal(ts) {
		t.Errorf("point time = %v, want %v", p.Time(), ts)
	}

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["greenhouse_id"] != "gh-1" {
		t.Errorf("greenhouse_id tag = %q", tags["greenhouse_id"])
	}

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	for name, want := range map[string]float64{
		"temperature":   23.4,
		"humidity_air":  51,
		"humidity_soil": 330,
		"light":         750,
	} {
		got, ok := fields[name].(float64)
		if !ok || got != want {
			t.Errorf("field %s = %v, want %v", name, fields[name], want)
		}
	}
}

func TestReadingToPointZeroTimestamp(t *testing.T) {
	before := time.Now()
	p := readingToPoint("sensor_reading", messages.SensorReading{GreenhouseID: "gh-1"})
	if p.Time().Before(before.Add(-time.Second)) {
		t.Error("zero reading timestamp must fall back to write-time clock")
	}
}

func TestBuildReadingsFlux(t *testing.T) {
	flux := buildReadingsFlux("green", "sensor_reading", "gh-1", 1440, 20)
	for _, fragment := range []string{
		`from(bucket: "green")`,
		`range(start: -1440m)`,
		`r._measurement == "sensor_reading"`,
		`r.greenhouse_id == "gh-1"`,
		`pivot(rowKey: ["_time"]`,
		`limit(n:20)`,
	} {
		if !strings.Contains(flux, fragment) {
			t.Errorf("flux missing %q:\n%s", fragment, flux)
		}
	}
}

func TestSanitizeMeasurement(t *testing.T) {
	if got := sanitizeMeasurement("sensor reading!"); got != "sensor_reading_" {
		t.Errorf("sanitizeMeasurement = %q", got)
	}
}

func TestNewStoreValidatesConfig(t *testing.T) {
	if _, err := NewStore(InfluxConfig{}); err == nil {
		t.Fatal("expected error for incomplete config")
	}
}
