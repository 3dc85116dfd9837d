package entity

// MetricsEvent is an attribution event handed to the metrics sink.
type MetricsEvent struct {
	Event      string         `json:"event"`
	Category   string         `json:"category"`
	Referrer   string         `json:"referrer,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Event names and categories emitted by the controller.
const (
	EventCustomNetworkAdded = "Custom Network Added"
	EventCategoryNetwork    = "Network"
)
