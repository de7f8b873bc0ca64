package workload

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ArrivalSampler generates inter-arrival times for one device.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in seconds. Always positive.
	SampleIAT(rng *rand.Rand) float64
}

// minIAT keeps arrivals strictly increasing for a single device.
const minIAT = 1e-9

// ConstantSampler emits one task every interval.
type ConstantSampler struct {
	interval float64
}

func (s *ConstantSampler) SampleIAT(_ *rand.Rand) float64 { return s.interval }

// PoissonSampler generates exponentially-distributed inter-arrival times (CV=1).
type PoissonSampler struct {
	rate float64 // tasks per second
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) float64 {
	return math.Max(rng.ExpFloat64()/s.rate, minIAT)
}

// GammaSampler generates Gamma-distributed inter-arrival times.
// CV > 1 produces bursty arrivals.
type GammaSampler struct {
	shape float64 // 1/CV²
	scale float64 // CV²/rate, seconds
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) float64 {
	return math.Max(gammaRand(rng, s.shape, s.scale), minIAT)
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler generates Weibull-distributed inter-arrival times.
type WeibullSampler struct {
	shape float64 // k
	scale float64 // λ, seconds
}

func (s *WeibullSampler) SampleIAT(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64
	}
	return math.Max(s.scale*math.Pow(-math.Log(u), 1.0/s.shape), minIAT)
}

// NewArrivalSampler creates an ArrivalSampler from a spec and a rate in tasks per minute.
func NewArrivalSampler(spec ArrivalSpec, ratePerMinute float64) ArrivalSampler {
	rate := ratePerMinute / 60
	if rate < 1e-15 {
		rate = 1e-15
	}
	cv := 1.0
	if spec.CV != nil && *spec.CV > 0 {
		cv = *spec.CV
	}
	switch spec.Process {
	case "constant":
		return &ConstantSampler{interval: 1 / rate}

	case "gamma":
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{rate: rate}
		}
		return &GammaSampler{shape: shape, scale: cv * cv / rate}

	case "weibull":
		k := weibullShapeFromCV(cv)
		// scale = mean / Γ(1 + 1/k)
		return &WeibullSampler{shape: k, scale: (1 / rate) / math.Gamma(1.0+1.0/k)}

	default:
		return &PoissonSampler{rate: rate}
	}
}

// weibullShapeFromCV finds the Weibull shape k with
// CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, by bisection over k ∈ [0.1, 100].
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f after 100 iterations; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
