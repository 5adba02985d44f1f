// Package broker publie les événements de commande sur RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrdersExchange = "orders_topic"
	publishTimeout = 5 * time.Second
)

// channel est le sous-ensemble de *amqp.Channel utilisé pour publier
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQ struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch channel
}

func Connect(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connexion RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("canal RabbitMQ: %w", err)
	}

	err = ch.ExchangeDeclare(
		OrdersExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("déclaration exchange: %w", err)
	}

	log.Println("✅ Connecté à RabbitMQ")
	return &RabbitMQ{conn: conn, ch: ch}, nil
}

// PublishEvent publie payload en JSON avec la clé de routage donnée (order.placed, order.status.*)
func (r *RabbitMQ) PublishEvent(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// un canal AMQP ne supporte pas les publications concurrentes
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ch.PublishWithContext(ctx,
		OrdersExchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
}

func (r *RabbitMQ) Close() {
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

// Noop est utilisé quand RABBITMQ_URL n'est pas défini
type Noop struct{}

func (Noop) PublishEvent(context.Context, string, any) error { return nil }
