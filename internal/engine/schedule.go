package engine

import (
	"math"
	"math/rand"
	"time"
)

// Schedule yields the wait before each request cycle.
type Schedule interface {
	NextWait() time.Duration
}

// ExponentialSchedule draws waits from an exponential distribution, making
// request arrivals a Poisson process.
type ExponentialSchedule struct {
	meanMinutes float64
	rng         *rand.Rand
}

// NewExponentialSchedule returns a schedule with rate 1/meanMinutes.
func NewExponentialSchedule(meanMinutes float64, rng *rand.Rand) *ExponentialSchedule {
	return &ExponentialSchedule{meanMinutes: meanMinutes, rng: rng}
}

func (s *ExponentialSchedule) NextWait() time.Duration {
	// ExpFloat64 has rate 1; dividing by rate 1/mean scales it to minutes.
	seconds := s.rng.ExpFloat64() * s.meanMinutes * 60
	return secondsToDuration(seconds)
}

// UniformSchedule draws whole-second waits uniformly from [min, max].
type UniformSchedule struct {
	min, max int
	rng      *rand.Rand
}

// NewUniformSchedule returns a schedule over the inclusive range [minSec, maxSec].
func NewUniformSchedule(minSec, maxSec int, rng *rand.Rand) *UniformSchedule {
	return &UniformSchedule{min: minSec, max: maxSec, rng: rng}
}

func (s *UniformSchedule) NextWait() time.Duration {
	return time.Duration(randRange(s.rng, s.min, s.max)) * time.Second
}

// DrawBurstSize returns a burst size from the inclusive range [min, max].
func DrawBurstSize(rng *rand.Rand, min, max int) int {
	return randRange(rng, min, max)
}

func randRange(rng *rand.Rand, min, max int) int {
	return rng.Intn(max-min+1) + min
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}
