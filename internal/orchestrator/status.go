package orchestrator

import (
	"log/slog"

	"github.com/waltervanheuven/speech2text/internal/domain"
)

// setStatus applies a run-status transition and publishes it. Invalid
// edges are logged as anomalies; the state machine is driven only by the
// orchestrator, so hitting one is a programming error, not a user error.
func (o *Orchestrator) setStatus(runID string, to domain.RunStatus) {
	o.mu.Lock()
	from := o.status
	if from == to {
		o.mu.Unlock()
		return
	}
	if !isValidTransition(from, to) {
		slog.Error("invalid run-status transition", "from", from, "to", to)
	}
	o.status = to
	o.mu.Unlock()

	o.publishStatus(runID, to)
}

// isValidTransition enforces the allowed run state machine edges.
func isValidTransition(from, to domain.RunStatus) bool {
	switch from {
	case domain.RunStatusIdle:
		return to == domain.RunStatusProcessing
	case domain.RunStatusProcessing:
		return to == domain.RunStatusConverting || to == domain.RunStatusCancelling || to == domain.RunStatusIdle
	case domain.RunStatusConverting:
		return to == domain.RunStatusProcessing || to == domain.RunStatusCancelling || to == domain.RunStatusIdle
	case domain.RunStatusCancelling:
		return to == domain.RunStatusIdle
	default:
		return false
	}
}
