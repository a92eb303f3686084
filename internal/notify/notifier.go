package notify

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"tubeclone/internal/cache"
	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes toasts. With Redis every instance's hub receives them
// through pub/sub; without Redis they go straight to the local hub.
type Notifier struct {
	rdb *redis.Client
	hub *Hub
}

// NewNotifier creates a notifier. rdb may be nil.
func NewNotifier(rdb *redis.Client, hub *Hub) *Notifier {
	return &Notifier{rdb: rdb, hub: hub}
}

// Publish sends t to every live connection of clientID.
func (n *Notifier) Publish(ctx context.Context, clientID string, t models.Toast) error {
	payload := Encode(Message{Type: TypeToast, Payload: t})

	if n.rdb != nil {
		if err := n.rdb.Publish(ctx, cache.ToastChannel(clientID), payload).Err(); err != nil {
			return fmt.Errorf("publish toast: %w", err)
		}
		observability.ToastsDelivered.WithLabelValues(t.Variant, "pubsub").Inc()
		return nil
	}
	if n.hub != nil {
		n.hub.Deliver(clientID, payload)
	}
	observability.ToastsDelivered.WithLabelValues(t.Variant, "local").Inc()
	return nil
}

// StartSubscriber forwards toasts from Redis to the local hub until ctx ends.
func (n *Notifier) StartSubscriber(ctx context.Context) error {
	if n.rdb == nil || n.hub == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, cache.ToastChannelPattern)
	// Wait for the subscription so publishes right after startup are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe toasts: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in toast subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					clientID := strings.TrimPrefix(msg.Channel, cache.ToastChannel(""))
					if clientID == "" || clientID == msg.Channel {
						middleware.Logger.Warn("invalid toast channel", "channel", msg.Channel)
						return
					}
					n.hub.Deliver(clientID, []byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}

// ForClient binds the notifier to one client.
func (n *Notifier) ForClient(clientID string) *ClientToaster {
	return &ClientToaster{n: n, clientID: clientID}
}

// ClientToaster shows toasts to a single client. Delivery is best effort.
type ClientToaster struct {
	n        *Notifier
	clientID string
}

// Toast delivers t, logging (not returning) delivery failures.
func (c *ClientToaster) Toast(ctx context.Context, t models.Toast) {
	if c == nil || c.n == nil {
		return
	}
	if err := c.n.Publish(ctx, c.clientID, t); err != nil {
		middleware.Logger.WarnContext(ctx, "toast delivery failed", "error", err)
	}
}
