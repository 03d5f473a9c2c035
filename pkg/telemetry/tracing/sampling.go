package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler names accepted in telemetry.tracing.sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// newSampler builds the root sampler. The result always honours a sampled
// parent, so a traceparent header from a caller keeps its trace intact even
// at a low ratio. An empty name means ratio.
func newSampler(name string, ratio float64) (sdktrace.Sampler, error) {
	var root sdktrace.Sampler
	switch name {
	case SamplerAlways:
		root = sdktrace.AlwaysSample()
	case SamplerNever:
		root = sdktrace.NeverSample()
	case SamplerRatio, "":
		switch {
		case ratio < 0 || ratio > 1:
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %g", ratio)
		case ratio == 1:
			root = sdktrace.AlwaysSample()
		case ratio == 0:
			root = sdktrace.NeverSample()
		default:
			root = sdktrace.TraceIDRatioBased(ratio)
		}
	default:
		return nil, fmt.Errorf("unknown sampler %q (valid: always, never, ratio)", name)
	}
	return sdktrace.ParentBased(root), nil
}
