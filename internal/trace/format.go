package trace

import (
	"fmt"
	"io"
)

// Formatter renders completed events and the final status line as text,
// written synchronously in emission order with no buffering, so the trace can
// be consumed incrementally while the tracee runs.
type Formatter struct {
	w io.Writer
}

// NewFormatter returns a Formatter writing to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// Event writes one completed syscall as a single line:
//
//	[51942] write(1, 55a4553dacf0, 7, ...) = 7
//
// Values are bare hex words without zero padding. Only the first three
// argument registers are captured; the ellipsis marks the rest, whatever the
// syscall's true argument count.
func (f *Formatter) Event(e SyscallEvent) error {
	_, err := fmt.Fprintf(f.w, "[%d] %s(%x, %x, %x, ...) = %x\n",
		e.PID, e.Name, e.Args[0], e.Args[1], e.Args[2], e.Ret)
	return err
}

// Exit writes the session's final status line.
func (f *Formatter) Exit(st ExitStatus) error {
	if st.Signaled {
		_, err := fmt.Fprintf(f.w, "child killed by signal: %d\n", st.Signal)
		return err
	}
	_, err := fmt.Fprintf(f.w, "child exited with status: %d\n", st.Code)
	return err
}
