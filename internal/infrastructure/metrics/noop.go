package metrics

import (
	"time"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

// NoopRecorder discards everything. Used when metrics are disabled.
type NoopRecorder struct{}

var _ port.MetricsRecorder = NoopRecorder{}

func (NoopRecorder) TrackEvent(entity.MetricsEvent)                    {}
func (NoopRecorder) IncNetworkSwitch(entity.NetworkType)               {}
func (NoopRecorder) SetNetworkStatus(entity.NetworkStatus)             {}
func (NoopRecorder) ObserveLookup(entity.NetworkStatus, time.Duration) {}
