package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ordersExchange = "pos.orders"
	publishTimeout = 5 * time.Second
)

// RabbitPublisher publishes order events to a topic exchange, one routing
// key per tenant ("tenant.<id>"), so a subscriber can bind to exactly the
// tenants it cares about.
//
// The connection is shared process-wide and dialed lazily: the broker may
// be down at startup, and the first successful Publish (or Ping) brings it
// up. A failed publish drops the connection so the next call redials.
type RabbitPublisher struct {
	url string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitPublisher(url string) *RabbitPublisher {
	return &RabbitPublisher{url: url}
}

// channelLocked returns a usable channel, dialing if needed.
// Caller must hold p.mu.
func (p *RabbitPublisher) channelLocked() (*amqp.Channel, error) {
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(
		ordersExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	p.conn = conn
	p.channel = channel
	return channel, nil
}

func (p *RabbitPublisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// Publish sends one event for the tenant's subscribers. On any failure the
// connection is torn down so the next call starts fresh.
func (p *RabbitPublisher) Publish(ctx context.Context, tenantID int64, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	channel, err := p.channelLocked()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	routingKey := fmt.Sprintf("tenant.%d", tenantID)
	err = channel.PublishWithContext(ctx,
		ordersExchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		})
	if err != nil {
		p.closeLocked()
		return err
	}
	return nil
}

// Ping makes sure a connection is up, dialing if needed. The keepalive
// worker calls this so the first real publish after a broker restart does
// not pay the dial cost.
func (p *RabbitPublisher) Ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.channelLocked()
	return err
}

// Close tears down the shared connection.
func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}
