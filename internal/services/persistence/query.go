package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/greenklok/greenhouse-core/internal/model/messages"
)

var ErrNoData = fmt.Errorf("persistence: no data in window")

// LatestReading returns the most recent reading for a greenhouse within the
// lookback window.
func (s *Store) LatestReading(ctx context.Context, greenhouseID string, window time.Duration) (messages.SensorReading, error) {
	list, err := s.ReadingsWindow(ctx, greenhouseID, window, 1)
	if err != nil {
		return messages.SensorReading{}, err
	}
	if len(list) == 0 {
		return messages.SensorReading{}, ErrNoData
	}
	return list[0], nil
}

// ReadingsWindow returns up to limit readings within the lookback window,
// newest first.
func (s *Store) ReadingsWindow(ctx context.Context, greenhouseID string, window time.Duration, limit int) ([]messages.SensorReading, error) {
	if limit <= 0 {
		limit = 20
	}
	minutes := int(window.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	res, err := s.queryAPI.Query(ctx, buildReadingsFlux(s.bucket, s.measurement, greenhouseID, minutes, limit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	out := make([]messages.SensorReading, 0, limit)
	for res.Next() {
		rec := res.Record()
		out = append(out, messages.SensorReading{
			GreenhouseID: greenhouseID,
			Temperature:  toFloat(rec.ValueByKey("temperature")),
			HumidityAir:  toFloat(rec.ValueByKey("humidity_air")),
			HumiditySoil: toFloat(rec.ValueByKey("humidity_soil")),
			Light:        toFloat(rec.ValueByKey("light")),
			Timestamp:    rec.Time().UTC(),
		})
	}
	if res.Err() != nil {
		return out, res.Err()
	}
	return out, nil
}

// LatestValue returns the most recent value of one sensor type. The type tag
// goes through the closed reading accessor, so unknown tags fail before any
// query runs.
func (s *Store) LatestValue(ctx context.Context, greenhouseID, sensorType string, window time.Duration) (float64, time.Time, error) {
	if _, err := (messages.SensorReading{}).Value(sensorType); err != nil {
		return 0, time.Time{}, err
	}
	r, err := s.LatestReading(ctx, greenhouseID, window)
	if err != nil {
		return 0, time.Time{}, err
	}
	v, err := r.Value(sensorType)
	if err != nil {
		return 0, time.Time{}, err
	}
	return v, r.Timestamp, nil
}

func buildReadingsFlux(bucket, measurement, greenhouseID string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.greenhouse_id == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, measurement, greenhouseID, limit)
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}
