package trace

// New creates a platform-appropriate tracer. On linux/amd64 this is the
// ptrace engine; elsewhere a stub whose Start fails.
func New(cfg Config) (Tracer, error) {
	return newPlatformTracer(cfg)
}
