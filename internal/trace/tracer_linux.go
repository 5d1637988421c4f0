//go:build linux && amd64

package trace

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/XDRAGON2002/stalker/internal/log"
	"github.com/XDRAGON2002/stalker/internal/syscalls"
)

// ptOptions are set on every tracee. TRACESYSGOOD sets bit 7 on the stop
// signal of syscall-boundary stops so they are distinguishable from a real
// SIGTRAP; TRACEEXEC turns the post-execve trap into an explicit event.
const ptOptions = unix.PTRACE_O_TRACESYSGOOD | unix.PTRACE_O_TRACEEXEC

// traceSysGoodBit marks a stop signal as a syscall-boundary trap.
const traceSysGoodBit = 0x80

// PtraceTracer traces a single process with ptrace on linux/amd64.
type PtraceTracer struct {
	config Config

	mu        sync.Mutex
	callbacks []func(SyscallEvent)
	started   bool
	pid       int

	done   chan struct{}
	status ExitStatus
	err    error
}

// NewPtraceTracer creates a ptrace tracer for the given target.
func NewPtraceTracer(cfg Config) (*PtraceTracer, error) {
	return &PtraceTracer{
		config: cfg,
		done:   make(chan struct{}),
	}, nil
}

func (t *PtraceTracer) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("tracer already started")
	}
	t.started = true
	t.mu.Unlock()

	ready := make(chan error, 1)
	go t.run(ready)
	return <-ready
}

func (t *PtraceTracer) OnSyscall(cb func(SyscallEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, cb)
}

func (t *PtraceTracer) Wait() (ExitStatus, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.err
}

// Stop applies the disposition policy. A launched child never outlives the
// session: it is killed here, and PTRACE_O_EXITKILL covers tracer death. An
// attached target is left running; the kernel detaches it when the tracer
// exits.
func (t *PtraceTracer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.config.attachMode() || t.pid == 0 {
		return nil
	}
	// launch() already reaped the initial exec stop through os/exec, so the
	// Cmd's Process handle considers the child done and refuses to signal it.
	// Signal the pid directly; ESRCH just means it is already gone.
	if err := unix.Kill(t.pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		return fmt.Errorf("killing tracee %d: %w", t.pid, err)
	}
	return nil
}

func (t *PtraceTracer) Pid() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pid
}

// run is the session goroutine. Ptrace ties a tracee to the OS thread that
// started tracing it: every resume and wait below must come from this same
// thread, so it stays locked for the whole session.
func (t *PtraceTracer) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pid, err := t.acquire()
	if err != nil {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.done)
		ready <- err
		return
	}
	t.mu.Lock()
	t.pid = pid
	t.mu.Unlock()
	ready <- nil

	status, err := t.loop(pid)
	t.mu.Lock()
	t.status, t.err = status, err
	t.mu.Unlock()
	close(t.done)
}

func (t *PtraceTracer) acquire() (int, error) {
	if t.config.attachMode() {
		return t.attach()
	}
	return t.launch()
}

// launch starts the target with PTRACE_TRACEME set in the child, so the
// kernel stops it with SIGTRAP the moment execve lands in the new program
// image. Tracing begins at the program's very first instruction.
func (t *PtraceTracer) launch() (int, error) {
	cmd := exec.Command(t.config.Path, t.config.Args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	if err := cmd.Start(); err != nil {
		return 0, &AcquisitionError{Reason: ErrSpawnFailed, Cause: err}
	}
	pid := cmd.Process.Pid

	// Collect the initial post-execve stop. Wait returns an error here
	// because the child stopped rather than exited; the wait status is what
	// matters.
	if err := cmd.Wait(); err != nil {
		log.Debug("initial stop collected", "pid", pid, "wait", err)
	}
	if cmd.ProcessState == nil {
		return 0, &AcquisitionError{Reason: ErrSpawnFailed, Cause: fmt.Errorf("no wait status for child")}
	}
	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok || !ws.Stopped() {
		return 0, &AcquisitionError{Reason: ErrSpawnFailed, Cause: fmt.Errorf("child not stopped after exec")}
	}

	if err := unix.PtraceSetOptions(pid, ptOptions|unix.PTRACE_O_EXITKILL); err != nil {
		return 0, &AcquisitionError{Reason: ErrSpawnFailed, Cause: fmt.Errorf("setting trace options: %w", err)}
	}
	log.Debug("launched tracee", "pid", pid, "path", t.config.Path)
	return pid, nil
}

// attach marks an existing process as traced. Tracing begins from whatever
// the target is executing right now; no history is rewound. The kernel's
// tracing policy (e.g. YAMA) may demand elevated privilege even for
// same-user targets.
func (t *PtraceTracer) attach() (int, error) {
	pid := t.config.PID
	if err := unix.PtraceAttach(pid); err != nil {
		switch err {
		case unix.ESRCH:
			return 0, &AcquisitionError{Reason: ErrNoSuchProcess, Cause: err}
		case unix.EPERM:
			return 0, &AcquisitionError{Reason: ErrPermissionDenied, Cause: err}
		default:
			return 0, &AcquisitionError{Cause: fmt.Errorf("ptrace attach: %w", err)}
		}
	}

	// The attach delivers a SIGSTOP; consume it so the target is in a clean
	// traced stop before the loop takes over.
	var ws unix.WaitStatus
	if _, err := waitFor(pid, &ws); err != nil {
		return 0, &AcquisitionError{Cause: fmt.Errorf("waiting for attach stop: %w", err)}
	}
	if err := unix.PtraceSetOptions(pid, ptOptions); err != nil {
		return 0, &AcquisitionError{Cause: fmt.Errorf("setting trace options: %w", err)}
	}
	log.Debug("attached to tracee", "pid", pid)
	return pid, nil
}

// loop is the trace state machine: resume to the next syscall boundary, block
// on the stop-or-exit notification (the session's only blocking point), and
// classify it. Signals unrelated to tracing are re-injected unmodified and do
// not toggle enter/exit parity.
func (t *PtraceTracer) loop(pid int) (ExitStatus, error) {
	sess := newSession(pid, t.config.attachMode(), syscalls.Name)

	var deliver syscall.Signal
	for {
		if err := unix.PtraceSyscall(pid, int(deliver)); err != nil && err != unix.ESRCH {
			return ExitStatus{}, fmt.Errorf("resuming tracee %d: %w", pid, err)
		}
		deliver = 0

		var ws unix.WaitStatus
		if _, err := waitFor(pid, &ws); err != nil {
			if err == unix.ECHILD {
				// The tracee is gone and already reaped. SIGKILL is the only
				// way it can die without us seeing the exit stop first.
				log.Warn("tracee vanished", "pid", pid)
				return ExitStatus{Signal: int(unix.SIGKILL), Signaled: true}, nil
			}
			return ExitStatus{}, fmt.Errorf("waiting on tracee %d: %w", pid, err)
		}

		switch {
		case ws.Exited():
			return ExitStatus{Code: ws.ExitStatus()}, nil

		case ws.Signaled():
			return ExitStatus{Signal: int(ws.Signal()), Signaled: true}, nil

		case ws.Stopped():
			sig := ws.StopSignal()
			switch {
			case sig == unix.SIGTRAP|traceSysGoodBit:
				snap, err := captureRegs(pid)
				if err != nil {
					// Benign race: the process died between the stop
					// notification and the read. Finalize instead of failing;
					// everything traced so far is valid output.
					log.Debug("register read failed, finalizing session", "pid", pid, "error", err)
					return t.reapFinal(pid), nil
				}
				ev, emit, err := sess.observe(snap)
				if err != nil {
					return ExitStatus{}, err
				}
				if emit {
					t.emit(ev)
				}

			case sig == unix.SIGTRAP && ws.TrapCause() == unix.PTRACE_EVENT_EXEC:
				// Launch-mode milestone: the child entered its new program
				// image. Not a syscall; no parity toggle.
				log.Debug("tracee entered new program image", "pid", pid)

			case sig == unix.SIGTRAP:
				// A plain trap that is neither a syscall boundary nor an exec
				// event (e.g. a breakpoint). Swallowed, not re-injected.
				log.Debug("plain SIGTRAP stop", "pid", pid)

			default:
				// A signal meant for the tracee. Hand it back unmodified on
				// the next resume so its behavior is unaffected.
				log.Debug("re-injecting signal", "pid", pid, "signal", int(sig))
				deliver = sig
			}
		}
	}
}

// reapFinal collects the terminal status after the tracee vanished mid-stop.
func (t *PtraceTracer) reapFinal(pid int) ExitStatus {
	var ws unix.WaitStatus
	if _, err := waitFor(pid, &ws); err == nil {
		switch {
		case ws.Exited():
			return ExitStatus{Code: ws.ExitStatus()}
		case ws.Signaled():
			return ExitStatus{Signal: int(ws.Signal()), Signaled: true}
		}
	}
	return ExitStatus{Signal: int(unix.SIGKILL), Signaled: true}
}

// emit pushes one completed event to the registered sinks, synchronously and
// in order.
func (t *PtraceTracer) emit(ev SyscallEvent) {
	t.mu.Lock()
	cbs := make([]func(SyscallEvent), len(t.callbacks))
	copy(cbs, t.callbacks)
	t.mu.Unlock()

	for _, cb := range cbs {
		cb(ev)
	}
}

// waitFor blocks until the next stop-or-exit notification for pid, retrying
// interrupted waits.
func waitFor(pid int, ws *unix.WaitStatus) (int, error) {
	for {
		wpid, err := unix.Wait4(pid, ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		return wpid, err
	}
}

// Compile-time interface check
var _ Tracer = (*PtraceTracer)(nil)
