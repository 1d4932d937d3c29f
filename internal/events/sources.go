package events

import (
	"time"

	"github.com/mcoot/d2r-multiplay/internal/model"
	"github.com/mcoot/d2r-multiplay/internal/services/logsink"
	"github.com/mcoot/d2r-multiplay/internal/services/notify"
	"github.com/mcoot/d2r-multiplay/internal/services/status"
)

// NotificationChanged is published whenever the notification slot changes
type NotificationChanged struct {
	Open         bool         `json:"open"`
	Notification *notify.View `json:"notification,omitempty"`
}

// StatusChanged is published after every successful status poll.
// Processes is keyed by lowercased local OS user name.
type StatusChanged struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Processes status.Snapshot `json:"processes"`
}

// Watch publishes log entries, notification changes and status updates
func (h *Hub) Watch(sink *logsink.Sink, channel *notify.Channel, poller *status.Poller) {
	sink.OnAdd(func(e model.LogEntry) {
		h.Publish(EventLog, e)
	})
	channel.OnChange(func() {
		v, ok := channel.Current()
		if !ok {
			h.Publish(EventNotification, NotificationChanged{})
			return
		}
		h.Publish(EventNotification, NotificationChanged{Open: true, Notification: &v})
	})
	poller.OnUpdate(func(snap status.Snapshot, at time.Time) {
		h.Publish(EventStatus, StatusChanged{UpdatedAt: at, Processes: snap})
	})
}
