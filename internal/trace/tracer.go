package trace

// Tracer runs one tracing session over a single process.
type Tracer interface {
	// Start acquires the target (launch or attach per Config) and begins the
	// trace loop on a dedicated, thread-locked goroutine. It returns once the
	// target is traced and running, or with an AcquisitionError.
	Start() error

	// OnSyscall registers a callback invoked for every completed syscall, in
	// emission order, from the trace-loop thread. Register before Start.
	OnSyscall(func(SyscallEvent))

	// Wait blocks until the tracee exits or the session fails, and returns
	// the terminal status.
	Wait() (ExitStatus, error)

	// Stop applies the session's disposition policy: a launched child is
	// killed, an attached target is left running untraced.
	Stop() error

	// Pid returns the tracee's process id once Start has succeeded.
	Pid() int
}

// Config selects the tracing target. Exactly one mode is active: Path (and
// Args) for launch mode, or PID for attach mode.
type Config struct {
	Path string   // program to launch under tracing
	Args []string // arguments to the launched program
	PID  int      // existing process to attach to
}

func (c Config) attachMode() bool {
	return c.PID > 0
}
