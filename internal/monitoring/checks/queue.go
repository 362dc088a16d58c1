package checks

import (
	"context"

	"github.com/charlesng35/tripmate/internal/monitoring"
	"github.com/charlesng35/tripmate/internal/queue"
)

// QueueStater is satisfied by queue.Manager.
type QueueStater interface {
	State() queue.State
}

// Queue reports the broker connection. The API keeps serving while the broker is
// away, so for the server the probe is optional; the consumer passes required=true.
func Queue(q QueueStater, required bool) monitoring.Check {
	probe := func(context.Context) monitoring.ProbeResult {
		if q == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "queue not configured"}
		}
		switch state := q.State(); state {
		case queue.StateConnected:
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: state.String()}
		case queue.StateConnecting:
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: state.String()}
		default:
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: state.String()}
		}
	}
	if required {
		return monitoring.NewCheck("queue", probe)
	}
	return monitoring.NewOptionalCheck("queue", probe)
}
