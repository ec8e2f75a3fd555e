package controller

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/greenklok/greenhouse-core/internal/services/persistence"
)

type healthHandler struct {
	mqtt  mqtt.Client
	store *persistence.Store
}

func NewHealthHandler(m mqtt.Client, s *persistence.Store) http.Handler {
	return &healthHandler{mqtt: m, store: s}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status          string  `json:"status"`
		MQTTConnected   bool    `json:"mqtt_connected"`
		LastWriteErrorS float64 `json:"last_write_error_age_sec"`
	}
	st := status{
		MQTTConnected:   h.mqtt != nil && h.mqtt.IsConnectionOpen(),
		LastWriteErrorS: h.store.LastErrorAge().Seconds(),
	}

	switch {
	case st.MQTTConnected && h.store.LastErrorAge() > 30*time.Second:
		st.Status = "ok"
	case st.MQTTConnected:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

type readyHandler struct {
	mqtt     mqtt.Client
	store    *persistence.Store
	minError time.Duration
}

// NewReadyHandler answers 200 only when the broker connection is open and no
// recent write errors happened.
func NewReadyHandler(m mqtt.Client, s *persistence.Store, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{mqtt: m, store: s, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready := h.mqtt != nil && h.mqtt.IsConnectionOpen() && h.store.LastErrorAge() > h.minError
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}
