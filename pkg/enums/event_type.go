package enums

// EventType names the Pub/Sub events this service produces and consumes.
type EventType string

const (
	EventNotificationRequested   EventType = "notification.requested"
	EventNotificationBroadcasted EventType = "notification.broadcasted"
)

func (e EventType) String() string {
	return string(e)
}

func (e EventType) IsValid() bool {
	switch e {
	case EventNotificationRequested, EventNotificationBroadcasted:
		return true
	default:
		return false
	}
}
