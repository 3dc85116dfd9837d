package port

import (
	"time"

	"network_controller/internal/domain/entity"
)

// MetricsRecorder receives attribution events and lifecycle measurements.
type MetricsRecorder interface {
	TrackEvent(event entity.MetricsEvent)
	IncNetworkSwitch(networkType entity.NetworkType)
	SetNetworkStatus(status entity.NetworkStatus)
	ObserveLookup(status entity.NetworkStatus, duration time.Duration)
}
