package dispatch

import (
	"fmt"
	"time"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

// DefaultResponseTimeout bounds the response wait when no explicit timeout
// is configured. It must cover the slowest operation on the slowest device;
// flashing a full image through the bootloader takes tens of seconds.
const DefaultResponseTimeout = 60 * time.Second

// Config holds the dispatch settings.
type Config struct {
	// ResponseTimeoutSeconds bounds the wait for device responses, measured
	// from the moment the command is published.
	ResponseTimeoutSeconds int `json:"response_timeout_seconds"`
	// Motes and Boxes are the deployed fleet sizes, used as the expected
	// response count of wildcard dispatches.
	Motes int `json:"motes"`
	Boxes int `json:"boxes"`
}

// SetDefaults fills unset fields with the deployed testbed dimensions.
func (c *Config) SetDefaults() {
	if c.ResponseTimeoutSeconds == 0 {
		c.ResponseTimeoutSeconds = int(DefaultResponseTimeout / time.Second)
	}
	if c.Motes == 0 {
		c.Motes = testbed.DefaultMotes
	}
	if c.Boxes == 0 {
		c.Boxes = testbed.DefaultBoxes
	}
}

// Validate reports configuration values SetDefaults cannot repair.
func (c Config) Validate() error {
	if c.ResponseTimeoutSeconds < 0 {
		return fmt.Errorf("dispatch: response_timeout_seconds must be positive, got %d", c.ResponseTimeoutSeconds)
	}
	if c.Motes < 0 || c.Boxes < 0 {
		return fmt.Errorf("dispatch: fleet sizes must be positive, got %d motes and %d boxes", c.Motes, c.Boxes)
	}
	return nil
}

// Timeout returns the response deadline as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.ResponseTimeoutSeconds) * time.Second
}

// FleetSize returns the configured fleet dimensions.
func (c Config) FleetSize() testbed.FleetSize {
	return testbed.FleetSize{Motes: c.Motes, Boxes: c.Boxes}
}
