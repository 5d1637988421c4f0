// Package syscalls resolves Linux x86-64 syscall numbers to their canonical
// names. The table is fixed at compile time and never mutated; lookups never
// fail.
package syscalls

import "strconv"

// Name returns the canonical x86-64 name for a syscall number. Numbers
// outside the table degrade to a deterministic "syscall_<n>" label so a
// kernel newer than the table still produces a readable trace.
func Name(num uint64) string {
	if num < uint64(len(names)) && names[num] != "" {
		return names[num]
	}
	return "syscall_" + strconv.FormatUint(num, 10)
}

// Count returns the number of table slots. Every number below Count resolves
// to a non-empty name.
func Count() int {
	return len(names)
}
