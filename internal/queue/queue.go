package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Event topics emitted by this service
const (
	TopicFollowUpSent        = "followup.sent"
	TopicConversationHandoff = "conversation.handoff"
)

// Publisher interface
type Publisher interface {
	Publish(topic string, payload any) error
}

// Event is the envelope every published payload travels in.
type Event struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// ====================== RabbitMQ ======================

// AMQPPublisher publishes events to RabbitMQ, one durable queue per
// topic.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

// NewAMQPPublisher dials RabbitMQ and opens a channel.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open queue channel: %w", err)
	}

	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
	}, nil
}

// Publish wraps the payload in an Event and sends it to the topic's
// queue.
func (p *AMQPPublisher) Publish(topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[topic] {
		_, err := p.ch.QueueDeclare(
			topic,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", topic, err)
		}
		p.declared[topic] = true
	}

	event := Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   event.ID,
			Body:        body,
		},
	)
}

// Close tears down the channel and connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

var _ Publisher = (*AMQPPublisher)(nil)

// ====================== In-memory ======================

// InMemoryQueue delivers events to in-process subscribers. Used in
// tests and when no AMQP_URL is configured.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// Publish sends an event to all subscribers of the topic. Topics with
// no subscribers are dropped silently — event consumers are optional in
// dev setups.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	event := Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	for _, handler := range handlers {
		go func(h func(payload any) error) {
			if err := h(event); err != nil {
				log.Printf("⚠️ Event handler failed for %s: %v\n", topic, err)
			}
		}(handler)
	}

	return nil
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
}

var _ Publisher = (*InMemoryQueue)(nil)
