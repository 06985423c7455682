// Package config holds the validated configuration surface of the protocol:
// flood rate bounds, session timing, and committee shape.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riffcc/pact/consensus/flood"
)

// Config is the root configuration object.
type Config struct {
	Flood     FloodConfig     `mapstructure:"flood"`
	Session   SessionConfig   `mapstructure:"session"`
	Committee CommitteeConfig `mapstructure:"committee"`
}

// FloodConfig bounds the adaptive retransmission rate.
type FloodConfig struct {
	// MinRate is the idle floor in packets/second per outstanding artifact.
	MinRate float64 `mapstructure:"min-rate" validate:"gt=0"`
	// MaxRate is the urgency ceiling in packets/second.
	MaxRate float64 `mapstructure:"max-rate" validate:"gt=0,gtefield=MinRate"`
	// RampUpFactor is the multiplicative step toward MaxRate per tick under
	// urgency.
	RampUpFactor float64 `mapstructure:"ramp-up-factor" validate:"gt=1"`
	// RampDownFactor is the multiplicative step toward MinRate per idle
	// tick.
	RampDownFactor float64 `mapstructure:"ramp-down-factor" validate:"gt=0,lt=1"`
}

// ResidualFailureProbability bounds the chance that an artifact flooded over
// the given window never arrived, for independent per-packet delivery
// probability p. The bound is computed at MinRate, the guaranteed number of
// attempts, so it holds regardless of how the adaptive rate moved.
func (f FloodConfig) ResidualFailureProbability(p float64, window time.Duration) float64 {
	return flood.ResidualFailureProbability(p, f.MinRate, window)
}

// SessionConfig governs session timing and queueing.
type SessionConfig struct {
	// TickInterval is the period of the flood/decision tick.
	TickInterval time.Duration `mapstructure:"tick-interval" validate:"gt=0"`
	// Timeout is the wall-clock deadline after which an undecided session
	// aborts.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// GracePeriod is how long a decided session lingers to absorb in-flight
	// duplicates before shutting down.
	GracePeriod time.Duration `mapstructure:"grace-period" validate:"gte=0"`
	// QueueCapacity bounds the inbound datagram queue; the overflow is
	// dropped, which the channel model permits.
	QueueCapacity int `mapstructure:"queue-capacity" validate:"gt=0"`
}

// CommitteeConfig is the threshold committee shape, n = 3f+1 and T = 2f+1.
type CommitteeConfig struct {
	// TotalNodes is the number of arbitrators (n).
	TotalNodes int `mapstructure:"total-nodes" validate:"gte=0"`
	// Threshold is the quorum size (T).
	Threshold int `mapstructure:"threshold" validate:"gte=0"`
}

// FaultTolerance returns the number of Byzantine arbitrators tolerated (f).
func (c CommitteeConfig) FaultTolerance() int {
	return (c.TotalNodes - 1) / 3
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Flood: FloodConfig{
			MinRate:        1,
			MaxRate:        64,
			RampUpFactor:   2,
			RampDownFactor: 0.5,
		},
		Session: SessionConfig{
			TickInterval:  50 * time.Millisecond,
			Timeout:       30 * time.Second,
			GracePeriod:   2 * time.Second,
			QueueCapacity: 1024,
		},
		Committee: CommitteeConfig{
			TotalNodes: 4,
			Threshold:  3,
		},
	}
}

// Validate checks both the per-field constraints and the structural
// committee relation: a configured committee must satisfy n = 3f+1 and
// T = 2f+1 exactly. A zero committee (bilateral-only deployment) is valid.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return fmt.Errorf("invalid configuration: %w", validationErrors)
		}
		return fmt.Errorf("could not validate configuration: %w", err)
	}

	n := c.Committee.TotalNodes
	t := c.Committee.Threshold
	if n == 0 && t == 0 {
		return nil
	}
	f := c.Committee.FaultTolerance()
	if n != 3*f+1 {
		return fmt.Errorf("invalid committee: total nodes %d does not satisfy n = 3f+1", n)
	}
	if t != 2*f+1 {
		return fmt.Errorf("invalid committee: threshold %d does not satisfy T = 2f+1 for n = %d", t, n)
	}
	return nil
}
