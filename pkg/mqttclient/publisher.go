package mqttclient

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher is the publishing side of the broker connection.
type IPublisher interface {
	PublishTo(topic string, qos byte, retained bool, payload string) error
	Close()
}

// Publisher publishes messages on arbitrary topics over a shared client.
type Publisher struct {
	client mqtt.Client
}

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishTo publishes a payload to the given topic and waits for the token.
func (p *Publisher) PublishTo(topic string, qos byte, retained bool, payload string) error {
	token := p.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %v", token.Error())
	}
	return nil
}

// Close gracefully closes the MQTT connection for the publisher.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Println("mqtt: publisher client disconnected")
	}
}
