package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/greenklok/greenhouse-core/internal/metrics"
	"github.com/greenklok/greenhouse-core/internal/model/messages"
	"github.com/greenklok/greenhouse-core/internal/services/inference"
	"github.com/greenklok/greenhouse-core/pkg/dedup"
	"github.com/greenklok/greenhouse-core/pkg/mqttclient"
	"github.com/greenklok/greenhouse-core/pkg/topics"
)

// ReadingStore is the persistence boundary the decision loop depends on.
type ReadingStore interface {
	InsertReading(ctx context.Context, r messages.SensorReading) error
}

type Config struct {
	ThermalHighC float64 // predicted temp above this opens the roof
	ThermalLowC  float64 // predicted temp below this closes it
	SoilRawMin   float64 // valid instrument range for the raw soil probe
	SoilRawMax   float64
	QueueSize    int           // per-greenhouse backlog before newest messages drop
	DedupTTL     time.Duration // redelivery memory, defaults to 10m
}

const persistTimeout = 5 * time.Second

// Service is the real-time decision loop: decode -> persist -> infer ->
// actuate/alert, one cycle per inbound telemetry message.
type Service struct {
	consumer  mqttclient.IConsumer
	store     ReadingStore
	predictor inference.Client
	actuator  *Actuator
	alerts    *Dispatcher
	deduper   *dedup.Deduper
	cfg       Config
	now       func() time.Time

	// one FIFO worker per greenhouse: cycle N settles before N+1 starts for
	// the same unit, while other units keep flowing.
	mu     sync.Mutex
	queues map[string]chan messages.SensorReading
	closed bool
	wg     sync.WaitGroup
}

func NewService(
	consumer mqttclient.IConsumer,
	store ReadingStore,
	predictor inference.Client,
	actuator *Actuator,
	alerts *Dispatcher,
	cfg Config,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("reading store is nil")
	}
	if predictor == nil {
		return nil, errors.New("predictor is nil")
	}
	if actuator == nil || alerts == nil {
		return nil, errors.New("actuator and alert dispatcher are required")
	}
	if cfg.ThermalHighC <= cfg.ThermalLowC {
		return nil, fmt.Errorf("thermal thresholds inverted: high=%.1f low=%.1f", cfg.ThermalHighC, cfg.ThermalLowC)
	}
	if cfg.SoilRawMax <= cfg.SoilRawMin {
		return nil, fmt.Errorf("soil raw range inverted: [%.0f, %.0f]", cfg.SoilRawMin, cfg.SoilRawMax)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}

	svc := &Service{
		consumer:  consumer,
		store:     store,
		predictor: predictor,
		actuator:  actuator,
		alerts:    alerts,
		deduper:   dedup.New(cfg.DedupTTL, 20000),
		cfg:       cfg,
		now:       time.Now,
		queues:    make(map[string]chan messages.SensorReading),
	}
	if consumer != nil {
		consumer.SetHandler(svc.handleTelemetry)
	}
	return svc, nil
}

// Start blocks until ctx is cancelled, then drains every queued reading
// before returning: cancellation stops ingest, not work already accepted.
func (s *Service) Start(ctx context.Context) {
	if s.consumer != nil {
		go s.consumer.ConsumeMessage(ctx)
	}
	<-ctx.Done()

	s.mu.Lock()
	s.closed = true
	for _, q := range s.queues {
		close(q)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// handleTelemetry runs on the broker callback: drop QoS1 redeliveries,
// decode, then hand the reading to the greenhouse's worker. It stays cheap
// so one unit's slow cycle never stalls ingest for the rest.
func (s *Service) handleTelemetry(topic string, msg mqtt.Message) error {
	// Scoped by topic: the device id lives in the topic, not the payload, so
	// a bare payload hash would conflate identical readings from different
	// greenhouses.
	if s.deduper != nil && !s.deduper.ShouldProcessPayload(topic, msg.Payload()) {
		return nil
	}

	greenhouseID, ok := topics.GreenhouseID(topic)
	if !ok {
		log.Printf("controller: unroutable topic %q", topic)
		return nil
	}

	reading, err := DecodeReading(greenhouseID, msg.Payload(), s.now())
	if err != nil {
		metrics.DecodeFailures.Inc()
		log.Printf("controller: %s: discarded payload: %v", greenhouseID, err)
		return nil
	}
	metrics.ReadingsProcessed.Inc()

	s.enqueue(reading)
	return nil
}

func (s *Service) enqueue(r messages.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	q, ok := s.queues[r.GreenhouseID]
	if !ok {
		q = make(chan messages.SensorReading, s.cfg.QueueSize)
		s.queues[r.GreenhouseID] = q
		s.wg.Add(1)
		go s.worker(q)
	}

	select {
	case q <- r:
	default:
		log.Printf("controller: %s: queue full, dropping reading", r.GreenhouseID)
	}
}

func (s *Service) worker(q <-chan messages.SensorReading) {
	defer s.wg.Done()
	for r := range q {
		s.runCycle(r)
	}
}

// runCycle is one full decision pass for a single reading. The branch order
// is fixed: anomaly, sensor fault, thermal high, thermal low, normal. Only
// the first matching branch executes.
func (s *Service) runCycle(r messages.SensorReading) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	if err := s.store.InsertReading(ctx, r); err != nil {
		metrics.StoreErrors.Inc()
		log.Printf("controller: %s: persist error (continuing): %v", r.GreenhouseID, err)
	}
	cancel()

	now := s.now()
	in := inference.Input{
		Temperature:  r.Temperature,
		HumidityAir:  r.HumidityAir,
		HumiditySoil: r.HumiditySoil,
		Light:        r.Light,
		Hour:         now.Hour(),
		MinuteOfDay:  now.Hour()*60 + now.Minute(),
	}

	res, err := s.predictor.Infer(context.Background(), in)
	if err != nil {
		metrics.InferenceFailures.Inc()
		log.Printf("controller: %s: inference failed, no action this cycle: %v", r.GreenhouseID, err)
		return
	}

	switch {
	case res.Anomaly:
		// Acting on suspect data is unsafe: alert only, no actuation.
		s.alerts.MaybeSend(r.GreenhouseID, ClassAnomaly,
			"Alert: anomaly detected",
			fmt.Sprintf("The predictor flagged the latest reading from greenhouse %s as anomalous.\n\n%s", r.GreenhouseID, readingSummary(r)))

	case r.HumiditySoil < s.cfg.SoilRawMin || r.HumiditySoil > s.cfg.SoilRawMax:
		s.alerts.MaybeSend(r.GreenhouseID, ClassSensorFault,
			"Alert: possible sensor fault",
			fmt.Sprintf("Greenhouse %s reported a raw soil humidity of %.0f, outside the instrument range [%.0f, %.0f]. This may indicate a disconnected or damaged probe.",
				r.GreenhouseID, r.HumiditySoil, s.cfg.SoilRawMin, s.cfg.SoilRawMax))

	case res.PredictedTemperature > s.cfg.ThermalHighC:
		s.actuator.RequestPosition(r.GreenhouseID, PositionOpen)
		s.alerts.MaybeSend(r.GreenhouseID, ClassThermalHigh,
			"Alert: high temperature expected",
			fmt.Sprintf("Predicted temperature for greenhouse %s is %.1fC (threshold %.1fC). Roof vent opened.\n\n%s",
				r.GreenhouseID, res.PredictedTemperature, s.cfg.ThermalHighC, readingSummary(r)))

	case res.PredictedTemperature < s.cfg.ThermalLowC:
		s.actuator.RequestPosition(r.GreenhouseID, PositionClosed)
		s.alerts.MaybeSend(r.GreenhouseID, ClassThermalLow,
			"Alert: low temperature expected",
			fmt.Sprintf("Predicted temperature for greenhouse %s is %.1fC (threshold %.1fC). Roof vent closed.\n\n%s",
				r.GreenhouseID, res.PredictedTemperature, s.cfg.ThermalLowC, readingSummary(r)))
	}
}

func readingSummary(r messages.SensorReading) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reading at %s:\n", r.Timestamp.UTC().Format(time.RFC3339))
	for _, tag := range []string{
		messages.SensorTemperature,
		messages.SensorHumidityAir,
		messages.SensorHumiditySoil,
		messages.SensorLight,
	} {
		v, err := r.Value(tag)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "  %s: %.1f\n", tag, v)
	}
	return b.String()
}
