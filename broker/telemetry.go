package broker

import "time"

// Telemetry is the broker's advisory liveness snapshot (§4.5.5). It never
// affects delivery semantics (§5 "Liveness"); the CLI/UI layer reads it to
// show connected/stale/disconnected state.
type Telemetry struct {
	LastExtensionPing time.Time `json:"lastExtensionPing,omitempty"`
	LastImporterPoll  time.Time `json:"lastImporterPoll,omitempty"`
	LastDelivery      time.Time `json:"lastDelivery,omitempty"`
	QueueLength       int       `json:"queueLength"`
}

func (t *Telemetry) recordDelivery() {
	t.LastDelivery = time.Now()
}

// StaleThreshold is how long since a ping before a component is reported as
// stale. A component that has never pinged is reported as disconnected.
const StaleThreshold = 30 * time.Second

// ExtensionState reports the capture agent's liveness bucket.
func (t Telemetry) ExtensionState(now time.Time) string {
	return livenessState(t.LastExtensionPing, now)
}

// ImporterState reports the importer's liveness bucket.
func (t Telemetry) ImporterState(now time.Time) string {
	return livenessState(t.LastImporterPoll, now)
}

func livenessState(last time.Time, now time.Time) string {
	if last.IsZero() {
		return "disconnected"
	}
	if now.Sub(last) > StaleThreshold {
		return "stale"
	}
	return "connected"
}
