package random

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// Stream names an independent sequence derived from one seed.
type Stream string

const (
	// StreamCalibration feeds the one-time mitigation calibration draws.
	StreamCalibration Stream = "calibration"
	// StreamSimulation feeds the per-day epidemic noise draws.
	StreamSimulation Stream = "simulation"
	// StreamEvents feeds trigger shuffling, event selection and event data draws.
	StreamEvents Stream = "events"
)

const (
	// z95 is the two-sided 95% normal quantile used to turn an interval into a
	// standard deviation.
	z95 = 1.96

	positiveNormalAttempts = 100
	positiveNormalFloor    = 1e-9
)

// Sampler draws numbers from a seeded PCG stream.
//
// A Sampler is not safe for concurrent use; each game owns its samplers.
type Sampler struct {
	pcg *rand.PCG
	rng *rand.Rand
}

// NewSampler derives the stream-specific generator for seed.
//
// # Determinism
//
// The same (seed, stream) pair always produces the same sequence. Different
// streams of one seed are independent, so adding a draw to one stream never
// shifts the values another stream produces.
func NewSampler(seed Seed, stream Stream) *Sampler {
	hi, lo := streamKeys(seed, stream)
	pcg := rand.NewPCG(hi, lo)
	return &Sampler{pcg: pcg, rng: rand.New(pcg)}
}

func streamKeys(seed Seed, stream Stream) (uint64, uint64) {
	first := fnv.New64a()
	_, _ = first.Write([]byte(seed))
	_, _ = first.Write([]byte{0})
	_, _ = first.Write([]byte(stream))

	second := fnv.New64a()
	_, _ = second.Write([]byte(stream))
	_, _ = second.Write([]byte{0})
	_, _ = second.Write([]byte(seed))
	return first.Sum64(), second.Sum64()
}

// Float64 returns a uniform value in [0, 1).
func (s *Sampler) Float64() float64 {
	return s.rng.Float64()
}

// IntN returns a uniform value in [0, n). It returns 0 when n <= 0.
func (s *Sampler) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.IntN(n)
}

// Shuffle pseudo-randomizes the order of n elements.
func (s *Sampler) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Normal returns a normally distributed value.
func (s *Sampler) Normal(mean, sd float64) float64 {
	return mean + s.rng.NormFloat64()*sd
}

// PositiveNormal returns a normally distributed value conditioned on being
// positive. Draws are rejected until one is positive; after a bounded number
// of attempts it falls back to the mean (or a tiny positive floor).
func (s *Sampler) PositiveNormal(mean, sd float64) float64 {
	for range positiveNormalAttempts {
		value := s.Normal(mean, sd)
		if value > 0 {
			return value
		}
	}
	if mean > 0 {
		return mean
	}
	return positiveNormalFloor
}

// NormalFromInterval returns a normal draw centered on the interval midpoint
// whose 95% confidence interval is [low, high].
func (s *Sampler) NormalFromInterval(low, high float64) float64 {
	if high < low {
		low, high = high, low
	}
	mean := (low + high) / 2
	sd := (high - low) / (2 * z95)
	return s.Normal(mean, sd)
}

// State snapshots the generator position.
func (s *Sampler) State() ([]byte, error) {
	state, err := s.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("snapshot sampler: %w", err)
	}
	return state, nil
}

// Restore rewinds the generator to a snapshot taken by State.
func (s *Sampler) Restore(state []byte) error {
	if err := s.pcg.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("restore sampler: %w", err)
	}
	return nil
}

