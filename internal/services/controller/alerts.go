package controller

import (
	"log"
	"sync"
	"time"

	"github.com/greenklok/greenhouse-core/internal/metrics"
	"github.com/greenklok/greenhouse-core/pkg/mailer"
)

// AlertClass identifies one independent alert category. The set is closed.
type AlertClass string

const (
	ClassAnomaly     AlertClass = "anomaly"
	ClassSensorFault AlertClass = "sensorFault"
	ClassThermalHigh AlertClass = "thermalHigh"
	ClassThermalLow  AlertClass = "thermalLow"
)

// Dispatcher rate-limits operator alerts with one cooldown timer per
// greenhouse per class. Suppressing one class never touches another.
type Dispatcher struct {
	mailer   mailer.Mailer
	to       string
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time // key = greenhouseID|class
}

func NewDispatcher(m mailer.Mailer, to string, cooldown time.Duration) *Dispatcher {
	return &Dispatcher{
		mailer:   m,
		to:       to,
		cooldown: cooldown,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// MaybeSend sends an alert unless the class is cooling down for this
// greenhouse. The cooldown timer is updated before the transmission attempt
// and is NOT reverted on a transmission failure: a flapping mail gateway must
// not turn into an alert storm.
func (d *Dispatcher) MaybeSend(greenhouseID string, class AlertClass, subject, body string) bool {
	now := d.now()
	k := cooldownKey(greenhouseID, class)

	d.mu.Lock()
	if last, ok := d.lastSent[k]; ok && now.Sub(last) < d.cooldown {
		d.mu.Unlock()
		metrics.AlertsSuppressed.WithLabelValues(string(class)).Inc()
		log.Printf("alerts: %s/%s suppressed (cooldown)", greenhouseID, class)
		return false
	}
	d.lastSent[k] = now
	d.mu.Unlock()

	metrics.AlertsSent.WithLabelValues(string(class)).Inc()
	if err := d.mailer.Send(d.to, subject, body); err != nil {
		log.Printf("alerts: %s/%s transmission failed: %v", greenhouseID, class, err)
	} else {
		log.Printf("alerts: %s/%s sent to %s", greenhouseID, class, d.to)
	}
	return true
}

func cooldownKey(greenhouseID string, class AlertClass) string {
	return greenhouseID + "|" + string(class)
}
