package messagequeue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// NewRabbitMQPublisherConfig contains options for creating a RabbitMQPublisher.
type NewRabbitMQPublisherConfig struct {
	URL      string
	Exchange string // durable topic exchange, declared on start
}

// RabbitMQPublisher publishes persistent JSON messages to a topic exchange.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex // amqp channels are not safe for concurrent use
	channel  amqpChannel
	exchange string
	logger   *zap.Logger
}

// NewRabbitMQPublisher dials the broker and declares the exchange.
func NewRabbitMQPublisher(cfg NewRabbitMQPublisherConfig, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newPublisher(ch, cfg.Exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	logger.Info("Connected to RabbitMQ", zap.String("exchange", cfg.Exchange))
	return p, nil
}

func newPublisher(ch amqpChannel, exchange string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQPublisher{channel: ch, exchange: exchange, logger: logger}, nil
}

// Publish sends body under routingKey. The amqp client has no context support,
// so ctx is only checked before sending.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Close closes the channel and then the connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var lastErr error
	if err := p.channel.Close(); err != nil {
		p.logger.Warn("Error closing RabbitMQ channel", zap.Error(err))
		lastErr = err
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.logger.Warn("Error closing RabbitMQ connection", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}
