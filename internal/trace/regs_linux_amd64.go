//go:build linux && amd64

package trace

import "golang.org/x/sys/unix"

// captureRegs reads the tracee's register file at a stop and reduces it to an
// immutable Snapshot per the x86-64 syscall ABI (number in orig_rax, first
// three arguments in rdi/rsi/rdx, return value in rax). The raw kernel
// structure never escapes this function. Capture fails with a
// RegisterReadError when the process has vanished since the stop.
func captureRegs(pid int) (Snapshot, error) {
	var regs unix.PtraceRegsAmd64
	if err := unix.PtraceGetRegsAmd64(pid, &regs); err != nil {
		return Snapshot{}, &RegisterReadError{PID: pid, Err: err}
	}
	return Snapshot{
		Number: regs.Orig_rax,
		Args:   [3]uint64{regs.Rdi, regs.Rsi, regs.Rdx},
		Ret:    regs.Rax,
	}, nil
}
