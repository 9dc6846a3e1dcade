package engine

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/thetangentline/pcftraffic/pkg/netutil"
)

// Defaults for the timestamp run.
const (
	DefaultPort         = 80
	DefaultPath         = "/pcf/timestamp46.html"
	DefaultMeanInterval = 10.0
)

// Defaults for the burst run.
const (
	DefaultBurstIterations = 1400
	DefaultMinWait         = 10
	DefaultMaxWait         = 30
	DefaultMinBurst        = 1
	DefaultMaxBurst        = 4
)

// TimestampConfig configures a run that POSTs the current Unix timestamp to
// host:port/path with exponentially distributed waits.
type TimestampConfig struct {
	Host string
	Port int
	Path string
	// MeanInterval is the mean wait between requests, in minutes.
	MeanInterval float64
	// Iterations bounds the number of cycles; 0 runs until cancelled.
	Iterations int
}

// NewTimestampConfig returns a TimestampConfig for host with default values.
func NewTimestampConfig(host string) TimestampConfig {
	return TimestampConfig{
		Host:         host,
		Port:         DefaultPort,
		Path:         DefaultPath,
		MeanInterval: DefaultMeanInterval,
	}
}

// Rate is the exponential rate parameter, in requests per minute.
func (c TimestampConfig) Rate() float64 {
	return 1.0 / c.MeanInterval
}

// Validate reports the first invalid field.
func (c TimestampConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port %d out of range [1, 65535]", c.Port)
	}
	if !(c.MeanInterval > 0) || math.IsInf(c.MeanInterval, 1) {
		return errors.Errorf("mean interval must be a positive number of minutes, got %v", c.MeanInterval)
	}
	if c.Iterations < 0 {
		return errors.Errorf("iterations must not be negative, got %d", c.Iterations)
	}
	return nil
}

// BurstConfig configures a fixed-count run of GET bursts with uniformly
// distributed waits. Waits are whole seconds.
type BurstConfig struct {
	Address    string
	Iterations int
	MinWait    int
	MaxWait    int
	MinBurst   int
	MaxBurst   int
}

// DefaultBurstConfig returns the burst configuration used when no flags are given.
func DefaultBurstConfig() BurstConfig {
	return BurstConfig{
		Address:    netutil.DefaultAddress,
		Iterations: DefaultBurstIterations,
		MinWait:    DefaultMinWait,
		MaxWait:    DefaultMaxWait,
		MinBurst:   DefaultMinBurst,
		MaxBurst:   DefaultMaxBurst,
	}
}

// MaxWaitSeconds is the longest wait a BurstConfig may ask for; anything
// longer does not fit in a time.Duration.
const MaxWaitSeconds = math.MaxInt64 / int(time.Second)

// rangeFits reports whether [min, max] has a size representable as an int.
func rangeFits(min, max int) bool {
	return max-min < math.MaxInt && max-min >= 0
}

// Validate reports the first invalid field.
func (c BurstConfig) Validate() error {
	if c.Iterations < 1 {
		return errors.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.MinWait < 0 || c.MaxWait < c.MinWait || !rangeFits(c.MinWait, c.MaxWait) {
		return errors.Errorf("invalid wait range [%d, %d]", c.MinWait, c.MaxWait)
	}
	if c.MaxWait > MaxWaitSeconds {
		return errors.Errorf("max wait %d s exceeds %d s", c.MaxWait, MaxWaitSeconds)
	}
	if c.MinBurst < 1 || c.MaxBurst < c.MinBurst || !rangeFits(c.MinBurst, c.MaxBurst) {
		return errors.Errorf("invalid burst range [%d, %d]", c.MinBurst, c.MaxBurst)
	}
	return nil
}
