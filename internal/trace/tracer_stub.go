package trace

import (
	"errors"
	"fmt"
	"runtime"
)

// StubTracer stands in on platforms without ptrace support. Start always
// fails; the callback plumbing still works so sinks can be tested anywhere.
type StubTracer struct {
	callbacks []func(SyscallEvent)
}

// NewStubTracer creates a stub tracer.
func NewStubTracer(cfg Config) *StubTracer {
	return &StubTracer{}
}

func (t *StubTracer) Start() error {
	return fmt.Errorf("syscall tracing requires linux/amd64, not %s/%s", runtime.GOOS, runtime.GOARCH)
}

func (t *StubTracer) OnSyscall(cb func(SyscallEvent)) {
	t.callbacks = append(t.callbacks, cb)
}

func (t *StubTracer) Wait() (ExitStatus, error) {
	return ExitStatus{}, errors.New("tracer never started")
}

func (t *StubTracer) Stop() error {
	return nil
}

func (t *StubTracer) Pid() int {
	return 0
}

// Emit invokes the registered callbacks directly (test hook).
func (t *StubTracer) Emit(ev SyscallEvent) {
	for _, cb := range t.callbacks {
		cb(ev)
	}
}

// Compile-time interface check
var _ Tracer = (*StubTracer)(nil)
