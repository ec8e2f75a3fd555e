package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/greenklok/greenhouse-core/internal/model/messages"
)

type readingQuerier interface {
	ReadingsWindow(ctx context.Context, greenhouseID string, window time.Duration, limit int) ([]messages.SensorReading, error)
}

// NewLatestDataHandler serves recent readings for a greenhouse.
// GET /data/latest?greenhouse=<id>[&minutes=1440][&limit=20]
func NewLatestDataHandler(q readingQuerier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		greenhouseID := strings.TrimSpace(r.URL.Query().Get("greenhouse"))
		if greenhouseID == "" {
			http.Error(w, `missing "greenhouse" parameter`, http.StatusBadRequest)
			return
		}
		minutes := queryInt(r, "minutes", 1440, 1, 7*24*60)
		limit := queryInt(r, "limit", 20, 1, 500)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := q.ReadingsWindow(ctx, greenhouseID, time.Duration(minutes)*time.Minute, limit)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Error", "store-query-error")
			_, _ = w.Write([]byte("[]"))
			return
		}

		type outT struct {
			GreenhouseID string  `json:"greenhouse_id"`
			Temperature  float64 `json:"temperature"`
			HumidityAir  float64 `json:"humidity_air"`
			HumiditySoil float64 `json:"humidity_soil"`
			Light        float64 `json:"light"`
			Timestamp    string  `json:"timestamp"`
		}
		out := make([]outT, 0, len(list))
		for _, v := range list {
			out = append(out, outT{
				GreenhouseID: v.GreenhouseID,
				Temperature:  v.Temperature,
				HumidityAir:  v.HumidityAir,
				HumiditySoil: v.HumiditySoil,
				Light:        v.Light,
				Timestamp:    v.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
}

// NewIrrigationHandler accepts manual watering commands.
// POST /irrigation/start {"greenhouse_id": "...", "duration_ms": 5000}
func NewIrrigationHandler(p *IrrigationPublisher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			GreenhouseID string `json:"greenhouse_id"`
			DurationMs   int    `json:"duration_ms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if err := p.StartIrrigation(req.GreenhouseID, req.DurationMs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message":       "irrigation started",
			"greenhouse_id": req.GreenhouseID,
			"duration_ms":   req.DurationMs,
		})
	})
}

func queryInt(r *http.Request, key string, def, min, max int) int {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			if n < min {
				return min
			}
			if n > max {
				return max
			}
			return n
		}
	}
	return def
}
