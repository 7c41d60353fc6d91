// Package rabbitmq carries the broker plumbing: domain events out on the
// ticketing exchange, payment confirmations in from the payments exchange.
package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// TicketingExchange receives outbound domain events (waitlist.offered,
	// ticket.purchased, ticket.refund, event.cancelled).
	TicketingExchange = "ticketing"

	// PaymentExchange delivers inbound payment-gateway confirmations.
	PaymentExchange = "payments"
	PaymentQueue    = "events-tickets.payments"

	exchangeKind = "topic"
)

// connect dials the broker and opens a channel with the named topic exchange
// declared. Both ends of the plumbing start here.
func connect(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return conn, ch, nil
}

func closeBoth(ch *amqp.Channel, conn *amqp.Connection) {
	if ch != nil {
		ch.Close()
	}
	if conn != nil {
		conn.Close()
	}
}
