package worker

import (
	"github.com/spec-kit/dispatch-service/internal/service"
)

// StartNotificationWorker hooks the notification service into the event
// dispatcher. Delivery is synchronous with Publish; there is no queue to
// drain, so no goroutine or shutdown hook is needed here.
func StartNotificationWorker(notifications *service.NotificationService) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()
}
