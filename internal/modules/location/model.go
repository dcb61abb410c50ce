// README: Rider position, tracker states and the permission/tracking state flow.
package location

import (
	"errors"
	"time"

	"ridemap/internal/config"
	"ridemap/internal/types"
)

// DeniedMessage is shown on the booking panel when location access is refused.
const DeniedMessage = "Permission to access location was denied"

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrAlreadyStarted   = errors.New("tracker already started")
)

type RiderPosition struct {
	Coordinate types.Point `json:"coordinate"`
	AccuracyM  float64     `json:"accuracy"`
	Timestamp  time.Time   `json:"timestamp"`
}

type State string

const (
	StateUninitialized       State = "uninitialized"
	StatePermissionRequested State = "permission_requested"
	StatePermissionDenied    State = "permission_denied"
	StatePermissionGranted   State = "permission_granted"
	StateTracking            State = "tracking"
	StateStopped             State = "stopped"
)

// AllowedTransitions represents the tracker state flow as code. Every state
// may move to StateStopped on teardown; denial is terminal otherwise.
var AllowedTransitions = map[State][]State{
	StateUninitialized:       {StatePermissionRequested, StateStopped},
	StatePermissionRequested: {StatePermissionDenied, StatePermissionGranted, StateStopped},
	StatePermissionGranted:   {StateTracking, StateStopped},
	StatePermissionDenied:    {StateStopped},
	StateTracking:            {StateStopped},
}

func CanTransition(from, to State) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is the loading/error/ready view consumers render.
type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

type Accuracy string

const (
	AccuracyLowest   Accuracy = "lowest"
	AccuracyLow      Accuracy = "low"
	AccuracyBalanced Accuracy = "balanced"
	AccuracyHigh     Accuracy = "high"
	AccuracyHighest  Accuracy = "highest"
)

// WatchConfig filters the continuous position stream: a callback fires at
// most once per MinInterval and only after moving at least MinDistanceM.
type WatchConfig struct {
	MinInterval  time.Duration
	MinDistanceM float64
	Accuracy     Accuracy
}

func DefaultWatchConfig() WatchConfig {
	return WatchConfig{MinInterval: 5 * time.Second, MinDistanceM: 10, Accuracy: AccuracyHigh}
}

func WatchConfigFrom(cfg config.LocationConfig) WatchConfig {
	return WatchConfig{
		MinInterval:  cfg.MinInterval,
		MinDistanceM: cfg.MinDistanceM,
		Accuracy:     Accuracy(cfg.Accuracy),
	}
}
