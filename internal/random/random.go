// Package random provides seeded, per-candidate random streams.
//
// Every candidate in a run owns an independent stream derived from the run
// seed and the candidate's position in the generation order. Secondary
// candidates derive their streams from the parent stream and their emission
// index. Streams are therefore fully determined by the run seed and the
// candidate lineage, independent of worker scheduling.
package random

import (
	"math"
	"math/rand/v2"
)

// Source is the sampling interface modules draw from.
//
// Implemented by Stream (production) and by scripted test sources that
// return predetermined values for deterministic negotiation tests.
type Source interface {
	// Uniform returns a value in the open interval (0, 1).
	// The value is never exactly 0, so -log(u) is always finite.
	Uniform() float64

	// Child derives the stream for the i-th secondary spawned from this
	// stream's candidate. The derivation depends only on this stream's
	// identity and i.
	Child(i int) Source
}

// Stream is a PCG-backed random stream identified by (seed, sequence).
//
// Not safe for concurrent use; each candidate owns exactly one stream and
// is processed by one worker at a time, so no locking is needed.
type Stream struct {
	seed uint64
	seq  uint64
	rng  *rand.Rand
}

// New creates the stream for run seed and candidate sequence number.
// Primary candidates use their generation index as the sequence.
func New(seed, seq uint64) *Stream {
	return &Stream{
		seed: seed,
		seq:  seq,
		rng:  rand.New(rand.NewPCG(seed, splitmix64(seq))),
	}
}

// Uniform returns a value in (0, 1).
func (s *Stream) Uniform() float64 {
	for {
		u := s.rng.Float64()
		if u > 0 {
			return u
		}
	}
}

// Child derives the stream for the i-th secondary.
//
// The child sequence mixes the parent sequence with the emission index so
// that sibling streams and parent/child streams are uncorrelated.
func (s *Stream) Child(i int) Source {
	return New(s.seed, splitmix64(s.seq^splitmix64(uint64(i)+1)))
}

// Exponential samples an exponentially distributed length with the given
// mean. Used for free-path sampling on optical depth.
func Exponential(src Source, mean float64) float64 {
	return -mean * math.Log(src.Uniform())
}

// splitmix64 is the finalizer from the SplitMix64 generator, used purely
// as a mixing function for stream derivation.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
