// Package messagequeue publishes domain events to a message broker.
package messagequeue

import "context"

// Publisher sends one message to the broker under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}
