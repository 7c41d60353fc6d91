package rabbitmq

import (
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// prefetchCount bounds unacknowledged deliveries per consumer so a burst of
// confirmations does not pile up ahead of the transaction throughput.
const prefetchCount = 10

// Consumer receives payment-gateway confirmation messages from the payments
// exchange.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewConsumer(url string) (*Consumer, error) {
	conn, ch, err := connect(url, PaymentExchange)
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(PaymentQueue, true, false, false, false, nil)
	if err != nil {
		closeBoth(ch, conn)
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if err := ch.QueueBind(q.Name, "payment.*", PaymentExchange, false, nil); err != nil {
		closeBoth(ch, conn)
		return nil, fmt.Errorf("rabbitmq queue bind: %w", err)
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		closeBoth(ch, conn)
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}

	return &Consumer{conn: conn, channel: ch}, nil
}

// Consume starts delivery with manual acknowledgement; the handler acks only
// after the purchase transaction resolves.
func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(PaymentQueue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}

	slog.Info("consuming payment confirmations", "queue", PaymentQueue)
	return msgs, nil
}

func (c *Consumer) Close() {
	closeBoth(c.channel, c.conn)
}
