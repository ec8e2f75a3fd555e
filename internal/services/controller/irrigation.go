package controller

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/greenklok/greenhouse-core/pkg/mqttclient"
	"github.com/greenklok/greenhouse-core/pkg/topics"
)

const maxIrrigationMs = 30000

type irrigationCommand struct {
	DurationMs int `json:"duracion"`
}

// IrrigationPublisher issues manual watering commands on the per-greenhouse
// irrigation topic. Not part of the decision branch.
type IrrigationPublisher struct {
	publisher mqttclient.IPublisher
}

func NewIrrigationPublisher(p mqttclient.IPublisher) *IrrigationPublisher {
	return &IrrigationPublisher{publisher: p}
}

// StartIrrigation publishes a bounded watering command. Durations outside
// (0, 30000] ms are rejected before anything reaches the broker.
func (i *IrrigationPublisher) StartIrrigation(greenhouseID string, durationMs int) error {
	if durationMs <= 0 || durationMs > maxIrrigationMs {
		return fmt.Errorf("irrigation: invalid duration %dms", durationMs)
	}
	topic, err := topics.For(greenhouseID, topics.Irrigation)
	if err != nil {
		return err
	}
	b, err := json.Marshal(irrigationCommand{DurationMs: durationMs})
	if err != nil {
		return err
	}
	if err := i.publisher.PublishTo(topic, 0, false, string(b)); err != nil {
		return err
	}
	log.Printf("irrigation: %s for %dms", topic, durationMs)
	return nil
}
