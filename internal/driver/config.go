package driver

import (
	"fmt"
	"time"
)

// Config holds the scheduling cadences of spec §5: mapping cadence
// ts_map and alignment cadence ts_align are independent, with ts_align
// typically a multiple of ts_map.
type Config struct {
	TsMap   time.Duration `json:"ts_map"`
	TsAlign time.Duration `json:"ts_align"`
}

// DefaultConfig returns a 10 Hz mapping cadence with alignment run
// every 5th tick.
func DefaultConfig() Config {
	return Config{
		TsMap:   100 * time.Millisecond,
		TsAlign: 500 * time.Millisecond,
	}
}

// Validate rejects invalid configuration at construction (spec §7 class 5).
func (c Config) Validate() error {
	if c.TsMap <= 0 {
		return fmt.Errorf("driver: TsMap must be positive, got %s", c.TsMap)
	}
	if c.TsAlign <= 0 {
		return fmt.Errorf("driver: TsAlign must be positive, got %s", c.TsAlign)
	}
	return nil
}

// WithCadences sets both scheduling cadences.
func (c Config) WithCadences(tsMap, tsAlign time.Duration) Config {
	c.TsMap = tsMap
	c.TsAlign = tsAlign
	return c
}
