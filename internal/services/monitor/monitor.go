package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/greenklok/greenhouse-core/internal/metrics"
	"github.com/greenklok/greenhouse-core/pkg/mailer"
	"github.com/greenklok/greenhouse-core/pkg/mqttclient"
	"github.com/greenklok/greenhouse-core/pkg/topics"
)

// LivenessRecord tracks one greenhouse purely from message arrival. Offline
// is edge-triggered: it flips true once per silence episode.
type LivenessRecord struct {
	LastSeen    time.Time
	Offline     bool
	LastAlertAt time.Time
}

type Config struct {
	StaleThreshold   time.Duration // silence beyond this means offline
	CheckInterval    time.Duration // sweep period
	ReminderInterval time.Duration // minimum gap between reminders while offline
	AlertTo          string
}

// Monitor is the liveness watchdog. It never looks at payload contents:
// arrival alone counts, valid or not.
type Monitor struct {
	consumer mqttclient.IConsumer
	mailer   mailer.Mailer
	cfg      Config
	now      func() time.Time

	mu      sync.Mutex
	records map[string]*LivenessRecord
}

func NewMonitor(consumer mqttclient.IConsumer, m mailer.Mailer, cfg Config) (*Monitor, error) {
	if m == nil {
		return nil, fmt.Errorf("mailer is nil")
	}
	if cfg.StaleThreshold <= 0 || cfg.CheckInterval <= 0 || cfg.ReminderInterval <= 0 {
		return nil, fmt.Errorf("monitor intervals must be positive")
	}
	mon := &Monitor{
		consumer: consumer,
		mailer:   m,
		cfg:      cfg,
		now:      time.Now,
		records:  make(map[string]*LivenessRecord),
	}
	if consumer != nil {
		consumer.SetHandler(mon.handleArrival)
	}
	return mon, nil
}

// Start runs the consume loop and the periodic sweep until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go m.consumer.ConsumeMessage(ctx)

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Monitor) handleArrival(topic string, _ mqtt.Message) error {
	greenhouseID, ok := topics.GreenhouseID(topic)
	if !ok {
		return nil
	}
	m.Touch(greenhouseID)
	return nil
}

// Touch refreshes last-seen for a greenhouse. A unit that was offline comes
// back online and its reminder state is cleared.
func (m *Monitor) Touch(greenhouseID string) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[greenhouseID]
	if !ok {
		rec = &LivenessRecord{}
		m.records[greenhouseID] = rec
	}
	rec.LastSeen = now
	if rec.Offline {
		rec.Offline = false
		rec.LastAlertAt = time.Time{}
		metrics.DevicesOffline.Dec()
		log.Printf("monitor: %s is sending data again, clearing offline state", greenhouseID)
	}
}

// sweep evaluates every known greenhouse. A unit never seen is never offline.
func (m *Monitor) sweep() {
	now := m.now()

	type pending struct {
		greenhouseID string
		silence      time.Duration
		reminder     bool
	}
	var alerts []pending

	m.mu.Lock()
	for id, rec := range m.records {
		if rec.LastSeen.IsZero() {
			continue
		}
		silence := now.Sub(rec.LastSeen)
		if silence <= m.cfg.StaleThreshold {
			continue
		}

		if !rec.Offline {
			rec.Offline = true
			rec.LastAlertAt = now
			metrics.DevicesOffline.Inc()
			alerts = append(alerts, pending{greenhouseID: id, silence: silence})
			continue
		}

		if now.Sub(rec.LastAlertAt) >= m.cfg.ReminderInterval {
			rec.LastAlertAt = now
			alerts = append(alerts, pending{greenhouseID: id, silence: silence, reminder: true})
		}
	}
	m.mu.Unlock()

	// Mail outside the lock: a slow SMTP relay must not stall arrivals.
	for _, a := range alerts {
		subject := fmt.Sprintf("Alert: greenhouse %s offline", a.greenhouseID)
		body := fmt.Sprintf("Greenhouse %s has not reported for %s (threshold %s).",
			a.greenhouseID, a.silence.Round(time.Second), m.cfg.StaleThreshold)
		if a.reminder {
			subject = fmt.Sprintf("Reminder: greenhouse %s still offline", a.greenhouseID)
			log.Printf("monitor: %s still silent after %s, sending reminder", a.greenhouseID, a.silence.Round(time.Second))
		} else {
			log.Printf("monitor: %s silent for %s, sending offline alert", a.greenhouseID, a.silence.Round(time.Second))
		}
		if err := m.mailer.Send(m.cfg.AlertTo, subject, body); err != nil {
			log.Printf("monitor: alert transmission failed: %v", err)
		}
	}
}

// Record returns a copy of the liveness record for a greenhouse.
func (m *Monitor) Record(greenhouseID string) (LivenessRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[greenhouseID]
	if !ok {
		return LivenessRecord{}, false
	}
	return *rec, true
}
