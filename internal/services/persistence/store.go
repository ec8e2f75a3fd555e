package persistence

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/greenklok/greenhouse-core/internal/model/messages"
)

type InfluxConfig struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	Measurement  string // defaults to "sensor_reading"
}

// Store is the gateway to the reading archive. Writes are best-effort from
// the decision loop's perspective; durability belongs to InfluxDB.
type Store struct {
	writeAPI    api.WriteAPIBlocking
	queryAPI    api.QueryAPI
	bucket      string
	measurement string

	mu      sync.RWMutex
	lastErr time.Time
}

func NewStore(cfg InfluxConfig) (*Store, error) {
	if cfg.InfluxURL == "" || cfg.InfluxToken == "" || cfg.InfluxOrg == "" || cfg.InfluxBucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "sensor_reading"
	}

	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)

	return &Store{
		writeAPI:    client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		queryAPI:    client.QueryAPI(cfg.InfluxOrg),
		bucket:      cfg.InfluxBucket,
		measurement: sanitizeMeasurement(measurement),
		lastErr:     time.Now().Add(-24 * time.Hour),
	}, nil
}

// InsertReading writes one reading as a single point.
func (s *Store) InsertReading(ctx context.Context, r messages.SensorReading) error {
	point := readingToPoint(s.measurement, r)
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		s.mu.Lock()
		s.lastErr = time.Now()
		s.mu.Unlock()
		return err
	}
	log.Printf("persistence: wrote %s greenhouse=%s temp=%.1f soil=%.0f",
		s.measurement, r.GreenhouseID, r.Temperature, r.HumiditySoil)
	return nil
}

// LastErrorAge returns how long ago the last write error happened, for the
// readiness probe.
func (s *Store) LastErrorAge() time.Duration {
	if s == nil {
		return 99999 * time.Hour
	}
	s.mu.RLock()
	t := s.lastErr
	s.mu.RUnlock()
	return time.Since(t)
}

func readingToPoint(measurement string, r messages.SensorReading) *write.Point {
	t := r.Timestamp
	if t.IsZero() {
		t = time.Now()
	}
	tags := map[string]string{
		"greenhouse_id": r.GreenhouseID,
	}
	fields := map[string]interface{}{
		"temperature":   r.Temperature,
		"humidity_air":  r.HumidityAir,
		"humidity_soil": r.HumiditySoil,
		"light":         r.Light,
	}
	return influxdb2.NewPoint(measurement, tags, fields, t)
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
