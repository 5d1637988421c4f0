//go:build linux && amd64

package trace

func newPlatformTracer(cfg Config) (Tracer, error) {
	return NewPtraceTracer(cfg)
}
