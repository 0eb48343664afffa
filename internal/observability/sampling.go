package observability

import (
	"os"
	"strconv"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Standard OTEL sampling env vars; read here rather than in config.
const (
	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"
)

const defaultTraceIDRatio = 1.0

// newSampler maps OTEL_TRACES_SAMPLER / OTEL_TRACES_SAMPLER_ARG to a Sampler.
// Empty or unknown values fall back to parentbased_always_on. Except under
// always_off, pipeline runs are always traced: there is one per recompute and
// a ratio tuned for API traffic would drop most of them.
func newSampler(getenv func(string) string) sdktrace.Sampler {
	ratio := parseTraceIDRatio(getenv(envTracesSamplerArg))

	var base sdktrace.Sampler

	switch strings.ToLower(strings.TrimSpace(getenv(envTracesSampler))) {
	case "always_on":
		base = sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		base = sdktrace.TraceIDRatioBased(ratio)
	case "parentbased_traceidratio":
		base = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	case "parentbased_always_off":
		base = sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		base = sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	return runSampler{next: base}
}

func newEnvSampler() sdktrace.Sampler {
	return newSampler(os.Getenv)
}

// runSampler samples root SpanSimilarityRun spans unconditionally and defers
// everything else to next.
type runSampler struct {
	next sdktrace.Sampler
}

func (s runSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	parent := trace.SpanContextFromContext(p.ParentContext)
	if p.Name == SpanSimilarityRun && !parent.IsValid() {
		return sdktrace.SamplingResult{
			Decision:   sdktrace.RecordAndSample,
			Tracestate: parent.TraceState(),
		}
	}

	return s.next.ShouldSample(p)
}

func (s runSampler) Description() string {
	return "SimilarityRunSampler{" + s.next.Description() + "}"
}

func parseTraceIDRatio(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultTraceIDRatio
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return defaultTraceIDRatio
	}

	return f
}
