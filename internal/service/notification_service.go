package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/events"
)

// NotificationService forwards domain events into the broadcast channels.
// Delivery transport behind the broadcaster is outside the core.
type NotificationService struct {
	dispatcher  events.Dispatcher
	broadcaster events.Broadcaster
	logger      *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, broadcaster events.Broadcaster, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventServiceOrderCreated, n.handle)
	n.dispatcher.Subscribe(events.EventServiceOrderUpdated, n.handle)
	n.dispatcher.Subscribe(events.EventEmergencyDetected, n.handle)
	n.dispatcher.Subscribe(events.EventImportProgress, n.handle)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event", string(event.Name)),
		zap.String("tenant_id", event.TenantID),
	}
	if event.OrderID != "" {
		fields = append(fields, zap.String("order_id", event.OrderID))
	}
	if event.TechnicianID != nil {
		fields = append(fields, zap.String("technician_id", *event.TechnicianID))
	}
	n.logger.Info("notify", fields...)

	if n.broadcaster == nil {
		return nil
	}
	if err := n.broadcaster.Broadcast(ctx, event); err != nil {
		n.logger.Error("broadcast failed", append(fields, zap.Error(err))...)
		return err
	}
	return nil
}
