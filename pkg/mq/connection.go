package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Both exchanges are topic exchanges keyed by event type, e.g.
// milestone.status_changed.
const (
	ExchangeName    = "portal.events"
	DLQExchangeName = "portal.events.dlq"
)

// openChannel dials url and returns a channel on which the portal exchanges
// exist. Closing the connection closes the channel.
func openChannel(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, exchange := range []string{ExchangeName, DLQExchangeName} {
		if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}
	return conn, ch, nil
}
