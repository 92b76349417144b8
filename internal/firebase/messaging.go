package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"rentshare-backend-go/internal/core"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Pusher implements core.Pusher on Firebase Cloud Messaging.
type Pusher struct {
	client messagingClient
}

func NewPusher(client *messaging.Client) *Pusher {
	return &Pusher{client: client}
}

// Push sends a notification message. Unregistered tokens map to core.ErrPushTokenInvalid.
func (p *Pusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := p.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
		Android:      &messaging.AndroidConfig{Priority: "high"},
	})
	if err == nil {
		return nil
	}
	if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
		return fmt.Errorf("%w: %v", core.ErrPushTokenInvalid, err)
	}
	return fmt.Errorf("fcm send: %w", err)
}
