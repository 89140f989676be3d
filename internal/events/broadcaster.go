package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Broadcaster pushes an event to its delivery channels. The transport behind
// the channel (sockets, webhooks) is outside the core.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
}

// TenantSubject names the per-tenant broadcast channel.
func TenantSubject(tenantID string) string {
	return fmt.Sprintf("tenant.%s", tenantID)
}

// TechnicianSubject names the per-technician broadcast channel.
func TechnicianSubject(technicianID string) string {
	return fmt.Sprintf("technician.%s", technicianID)
}

// NATSBroadcaster publishes events to NATS subjects. Every event goes to the
// tenant channel; events carrying a technician id also go to that
// technician's private channel.
type NATSBroadcaster struct {
	conn *nats.Conn
}

// NewNATSBroadcaster wraps an established NATS connection.
func NewNATSBroadcaster(conn *nats.Conn) *NATSBroadcaster {
	return &NATSBroadcaster{conn: conn}
}

// Broadcast implements Broadcaster.
func (b *NATSBroadcaster) Broadcast(_ context.Context, event Event) error {
	if b == nil || b.conn == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Name, err)
	}
	if err := b.conn.Publish(TenantSubject(event.TenantID), data); err != nil {
		return fmt.Errorf("publish tenant channel: %w", err)
	}
	if event.TechnicianID != nil {
		if err := b.conn.Publish(TechnicianSubject(*event.TechnicianID), data); err != nil {
			return fmt.Errorf("publish technician channel: %w", err)
		}
	}
	return nil
}
