package trace

// enterReturnMarker is the value the kernel leaves in the return-value
// register at a syscall-enter stop: uint64(-ENOSYS). At an exit stop it has
// been replaced with the real return value. The tracer uses it only to
// recognize the one orphan exit stop an attach can produce.
const enterReturnMarker = ^uint64(37) // -38 (ENOSYS) in two's complement

// session tracks the per-pid bookkeeping the kernel does not report: whether
// the next syscall-boundary stop is an enter or an exit (the stops are
// indistinguishable to the tracer otherwise), and the event staged at the
// last enter. At most one event is pending at a time.
type session struct {
	pid     int
	resolve func(uint64) string

	expectExit bool          // parity: the next boundary stop closes a syscall
	pending    *SyscallEvent // staged at enter, completed at exit

	// attachGrace is set until the first boundary stop of an attached session
	// has been classified. Attaching can land mid-syscall, making that first
	// stop the exit of a syscall whose entry was never observed; exactly one
	// such orphan is discarded instead of failing the session.
	attachGrace bool
}

func newSession(pid int, attached bool, resolve func(uint64) string) *session {
	return &session{pid: pid, resolve: resolve, attachGrace: attached}
}

// observe consumes one syscall-boundary stop and toggles parity. It returns
// emit=true with the completed event when the stop closed a syscall; enter
// stops and the tolerated post-attach orphan exit return emit=false.
func (s *session) observe(snap Snapshot) (SyscallEvent, bool, error) {
	if s.attachGrace {
		s.attachGrace = false
		if snap.Ret != enterReturnMarker {
			// Tail of a syscall already in flight when we attached. Discard
			// it; the next stop is an enter.
			s.expectExit = false
			return SyscallEvent{}, false, nil
		}
	}

	if !s.expectExit {
		if s.pending != nil {
			return SyscallEvent{}, false, &ProtocolError{
				PID: s.pid,
				Msg: "syscall-enter stop while an event is still pending",
			}
		}
		s.pending = &SyscallEvent{
			PID:    s.pid,
			Number: snap.Number,
			Name:   s.resolve(snap.Number),
			Args:   snap.Args,
		}
		s.expectExit = true
		return SyscallEvent{}, false, nil
	}

	if s.pending == nil {
		return SyscallEvent{}, false, &ProtocolError{
			PID: s.pid,
			Msg: "syscall-exit stop with no event pending",
		}
	}
	ev := *s.pending
	ev.Ret = snap.Ret
	ev.Completed = true
	s.pending = nil
	s.expectExit = false
	return ev, true, nil
}
