// Package trace drives a ptrace session over a single Linux process and
// reports every syscall it enters and exits.
//
// # Platform Support
//
// Linux on x86-64 only: the tracer reads the kernel-filled register file at
// each stop, and the register-to-argument mapping is the x86-64 syscall ABI.
// Other platforms get a stub tracer whose Start fails.
//
// # Usage
//
//	tracer, err := trace.New(trace.Config{Path: "/bin/ls", Args: []string{"-l"}})
//	if err != nil {
//	    return err
//	}
//
//	tracer.OnSyscall(func(e trace.SyscallEvent) {
//	    // called in emission order, one call per completed syscall
//	})
//
//	if err := tracer.Start(); err != nil {
//	    return err
//	}
//	status, err := tracer.Wait()
//
// # Threading
//
// The kernel requires every ptrace resume/wait on a tracee to come from the
// OS thread that started tracing it. Start therefore runs acquisition and the
// whole trace loop on one goroutine locked to its thread for the session's
// lifetime. Callbacks registered with OnSyscall run on that thread.
//
// # Tracee disposition
//
// If the tracer dies or Stop is called, a launched child is always killed
// (PTRACE_O_EXITKILL is set in launch mode), and an attached target always
// continues running untraced (the kernel detaches it). The same disposition
// applies in every run.
//
// # Limitations
//
// Children the tracee forks or clones are not followed; only the original
// process is traced. Pointer arguments are reported as raw words, not
// dereferenced.
package trace
