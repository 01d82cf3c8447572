package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
)

// Collector records monitor snapshots for one session.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	SessionID() string
	Close() error
}

// Repository stores snapshots.
type Repository interface {
	Record(snapshot *Snapshot) error
	// Recent returns up to limit snapshots, newest first. Buffered snapshots
	// are flushed before reading.
	Recent(limit int) ([]Snapshot, error)
	Close() error
}

// Snapshot is one monitor sample.
type Snapshot struct {
	Timestamp time.Time
	SessionID string
	Frequency FrequencyMetrics
	Thermal   ThermalMetrics
	State     StateMetrics
}

type FrequencyMetrics struct {
	Average cpu.Frequency
	Min     cpu.Frequency
	Max     cpu.Frequency
}

// ThermalMetrics are in degrees Celsius.
type ThermalMetrics struct {
	CPU     float64
	Hottest float64
}

type StateMetrics struct {
	Governor string
	Turbo    bool
}
