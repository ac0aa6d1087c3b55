package game

// Event is a human-readable notification for the display channel: trades,
// captures, new connections. Fire-and-forget; never awaited, never retried.
type Event struct {
	Tick     uint64   `json:"tick"`
	Category string   `json:"category"` // "trade", "capture", "rail", "player"
	Message  string   `json:"message"`
	Player   PlayerID `json:"player"`
	Agent    string   `json:"agent,omitempty"` // UUID of the train/ship involved
}

// Notifier receives display events.
type Notifier interface {
	Notify(Event)
}

// NopNotifier discards events; useful in tests.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Event) {}
