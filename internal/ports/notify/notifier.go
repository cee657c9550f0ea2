package notify

import "context"

// Notifier delivers fire-and-forget notifications (email/SMS fan-out lives
// behind this port). The core never depends on delivery success.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]string)
}

// Events emitted by the core.
const (
	EventCareRequestSent      = "care_request.sent"
	EventCareRequestAccepted  = "care_request.accepted"
	EventCareRequestWithdrawn = "care_request.withdrawn"
	EventSafetyStopTriggered  = "triage.safety_stop"
)
