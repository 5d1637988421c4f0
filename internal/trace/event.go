package trace

// SyscallEvent is one syscall observed at its boundary stops. It is staged at
// the enter stop (name and arguments known) and completed at the matching
// exit stop, when the return value becomes available.
type SyscallEvent struct {
	PID       int
	Number    uint64
	Name      string
	Args      [3]uint64 // first three argument registers
	Ret       uint64    // valid once Completed
	Completed bool
}

// ExitStatus is the terminal state of a traced process: either a normal exit
// code or the signal that killed it.
type ExitStatus struct {
	Code     int
	Signal   int
	Signaled bool
}

// Snapshot is a tracee's register state at one stop, reduced to the fields
// the tracer reads. The syscall number comes from the original-number
// register, which survives to the exit stop; by then the plain number
// register has been overwritten with the return value.
type Snapshot struct {
	Number uint64    // orig_rax
	Args   [3]uint64 // rdi, rsi, rdx
	Ret    uint64    // rax; meaningful at exit stops
}
