package sim

import (
	"hash/fnv"
	"math/rand"
	"strconv"
)

// Random subsystems. Each draws from its own source so that, for example,
// adding a node to a scenario area does not shift the task arrivals.
const (
	// SubsystemWorkload drives application assignment and inter-arrival times.
	SubsystemWorkload = "workload"

	// SubsystemPlacement places replicated nodes in a scenario area.
	SubsystemPlacement = "placement"

	// SubsystemFailure seeds the per-node failure streams of the status updater.
	SubsystemFailure = "failure"
)

// Moduli of the two components of the combined multiple-recursive generator
// behind rngstream. Each half of a stream seed must stay below its modulus.
const (
	mrgModulus1 = 4294967087
	mrgModulus2 = 4294944443
)

// PartitionedRNG hands out independent sources derived from one run seed.
// A subsystem's source is seeded with seed XOR fnv1a64(name).
//
// Not safe for concurrent use; every run owns its own instance.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates the sources of a run seeded with seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// Seed returns the run seed.
func (p *PartitionedRNG) Seed() int64 { return p.seed }

// ForSubsystem returns the source for the named subsystem, created on first use.
// Later calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// StreamSeed returns the six-word rngstream seed of entity id within subsystem.
// It depends only on the run seed, the subsystem and id, so the order in which
// streams are requested does not matter. Every word is non-zero and below its
// component's modulus, as rngstream.RngStream.SetSeed requires.
func (p *PartitionedRNG) StreamSeed(subsystem string, id int) []uint64 {
	src := rand.New(rand.NewSource(p.seed ^ fnv1a64(subsystem+"/"+strconv.Itoa(id))))
	seed := make([]uint64, 6)
	for i := range seed {
		modulus := int64(mrgModulus1)
		if i >= 3 {
			modulus = mrgModulus2
		}
		seed[i] = uint64(1 + src.Int63n(modulus-1))
	}
	return seed
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
