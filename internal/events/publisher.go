package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Exchange is the topic exchange session updates are published to.
const Exchange = "session_updates"

const (
	NameCreated   = "created"
	NameUploaded  = "cv_uploaded"
	NameAnalyzed  = "analyzed"
	NameAnswered  = "answered"
	NameGenerated = "generated"
	NameDeleted   = "deleted"
)

// Event is the body of one session update.
type Event struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Name      string    `json:"event"`
	At        time.Time `json:"at"`
}

// RoutingKey returns the topic routing key for a session.
func RoutingKey(sessionID string) string {
	return fmt.Sprintf("session.%s", sessionID)
}

// Publisher delivers session updates to listeners.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events on a RabbitMQ topic exchange, opening a
// short-lived channel per message.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel func() (channel, error)
}

// Dial connects to RabbitMQ and declares the exchange.
func Dial(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}
	return &AMQPPublisher{
		conn:    conn,
		channel: func() (channel, error) { return conn.Channel() },
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	return ch.Publish(
		Exchange,
		RoutingKey(e.SessionID),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   e.At,
			Body:        body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*AMQPPublisher)(nil)
)
