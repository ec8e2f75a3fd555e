package mqttclient

import (
	"context"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IConsumer is the subscribing side of the broker connection.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler func(topic string, message mqtt.Message) error)
}

// Consumer subscribes to a single topic filter and feeds messages to a handler.
type Consumer struct {
	client  mqtt.Client
	handler func(topic string, message mqtt.Message) error
	topic   string
	qos     byte
}

func NewConsumer(client mqtt.Client, topic string, qos byte, handler func(topic string, message mqtt.Message) error) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
}

func (c *Consumer) SetHandler(handler func(topic string, message mqtt.Message) error) {
	c.handler = handler
}

// ConsumeMessage subscribes to the topic and processes messages using the handler.
// It blocks until the context is cancelled, then unsubscribes.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(
		c.topic,
		c.qos,
		func(client mqtt.Client, message mqtt.Message) {
			if c.handler == nil {
				log.Printf("mqtt: no handler set for topic %s", c.topic)
				return
			}
			if err := c.handler(message.Topic(), message); err != nil {
				log.Printf("mqtt: error handling message on %s: %v", message.Topic(), err)
			}
		},
	)

	if token.Wait() && token.Error() != nil {
		log.Printf("mqtt: error subscribing to topic %s: %v", c.topic, token.Error())
		return
	}

	log.Printf("mqtt: subscribed to topic %s", c.topic)

	<-ctx.Done()

	unsubToken := c.client.Unsubscribe(c.topic)
	unsubToken.Wait()
}
