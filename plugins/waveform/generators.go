package waveform

import (
	"fmt"
	"math"

	"fieldplot/pkg/domain"
)

// ParameterKinds lists the built-in waveform shapes in generation order.
var ParameterKinds = []string{
	"sine",
	"decay",
	"pulse",
	"polynomial",
	"lorentzian",
	"logarithm",
	"damped",
	"spiral",
	"noise",
	"step",
}

// seedFor derives a deterministic 64-bit seed from path components using
// FNV-1a, so the same site/specimen/parameter triple always produces the
// same series.
func seedFor(parts ...string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i, part := range parts {
		if i > 0 {
			h ^= '/'
			h *= prime64
		}
		for j := 0; j < len(part); j++ {
			h ^= uint64(part[j])
			h *= prime64
		}
	}
	return h
}

// rng is a splitmix64 generator. Deterministic, no locking, good enough for
// synthetic noise.
type rng struct{ state uint64 }

func (r *rng) next() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// float returns a uniform value in [0, 1).
func (r *rng) float() float64 {
	return float64(r.next()>>11) / float64(1<<53)
}

// Generate produces n samples of the named waveform, shaped by the seed. The
// seed perturbs amplitude, frequency and offset so sibling specimens differ
// while every regeneration is identical.
func Generate(kind string, seed uint64, n int) ([]float64, error) {
	r := &rng{state: seed}
	amp := 0.5 + 2*r.float()
	freq := 0.05 + 0.2*r.float()
	offset := 10 * r.float()
	values := make([]float64, n)
	switch kind {
	case "sine":
		for i := range values {
			x := float64(i + 1)
			values[i] = offset + amp*math.Sin(freq*x)
		}
	case "decay":
		for i := range values {
			x := float64(i + 1)
			values[i] = offset + amp*math.Exp(-freq*x)
		}
	case "pulse":
		// two interleaved tones, odd indexes carry the second
		for i := range values {
			x := float64(i + 1)
			if i%2 == 0 {
				values[i] = offset + amp*math.Sin(freq*x)
			} else {
				values[i] = offset + amp*math.Cos(2*freq*x)
			}
		}
	case "polynomial":
		for i := range values {
			x := float64(i+1) / float64(n)
			values[i] = offset + amp*(x*x*x-1.5*x*x+0.5*x)
		}
	case "lorentzian":
		center := float64(n) / 2
		width := 1 + 10*freq
		for i := range values {
			x := float64(i + 1)
			d := (x - center) / width
			values[i] = offset + amp/(1+d*d)
		}
	case "logarithm":
		for i := range values {
			x := float64(i + 1)
			values[i] = offset + amp*math.Log1p(freq*x)
		}
	case "damped":
		for i := range values {
			x := float64(i + 1)
			values[i] = offset + amp*math.Exp(-freq*x/4)*math.Sin(freq*4*x)
		}
	case "spiral":
		for i := range values {
			x := float64(i + 1)
			values[i] = offset + amp*x/float64(n)*math.Sin(freq*6*x)
		}
	case "noise":
		for i := range values {
			values[i] = offset + amp*(2*r.float()-1)
		}
	case "step":
		period := n / 4
		if period < 1 {
			period = 1
		}
		for i := range values {
			values[i] = offset + amp*float64((i/period)%2)
		}
	default:
		return nil, fmt.Errorf("unknown waveform kind %q", kind)
	}
	return values, nil
}

// GenerateHierarchy builds a synthetic hierarchy for demos and tests: sites
// named site-1..N, specimens specimen-1..M, each carrying every parameter
// kind with sample indexes 1..n. Fully deterministic for a given shape.
func GenerateHierarchy(name string, sites, specimens, n int) (domain.Hierarchy, error) {
	if sites < 1 || specimens < 1 || n < 1 {
		return domain.Hierarchy{}, fmt.Errorf("hierarchy shape must be positive: %d sites, %d specimens, %d samples", sites, specimens, n)
	}
	h := domain.Hierarchy{Name: name}
	for si := 1; si <= sites; si++ {
		site := domain.Site{Name: fmt.Sprintf("site-%d", si)}
		for pi := 1; pi <= specimens; pi++ {
			specimen := domain.Specimen{Name: fmt.Sprintf("specimen-%d", pi)}
			for _, kind := range ParameterKinds {
				values, err := Generate(kind, seedFor(site.Name, specimen.Name, kind), n)
				if err != nil {
					return domain.Hierarchy{}, err
				}
				param := domain.Parameter{Name: kind}
				for i, v := range values {
					param.Samples = append(param.Samples, domain.Sample{Index: i + 1, Value: v})
				}
				specimen.Parameters = append(specimen.Parameters, param)
			}
			site.Specimens = append(site.Specimens, specimen)
		}
		h.Sites = append(h.Sites, site)
	}
	return h, nil
}
