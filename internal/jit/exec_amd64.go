//go:build amd64

package jit

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapExecutable copies code into a fresh writable page, then flips it
// to read+exec, returning the mapping and a callable pointer to its
// first byte. Grounded on the teacher-adjacent JIT pattern in the
// retrieval pack (other_examples' scm-jit allocExec/makeRX) but using
// golang.org/x/sys/unix instead of raw syscall, per this module's
// dependency set.
func mmapExecutable(code []byte) ([]byte, uintptr, error) {
	if len(code) == 0 {
		return nil, 0, fmt.Errorf("jit: cannot map empty code buffer")
	}
	page, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, 0, fmt.Errorf("jit: mmap: %w", err)
	}
	copy(page, code)
	if err := unix.Mprotect(page, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(page)
		return nil, 0, fmt.Errorf("jit: mprotect: %w", err)
	}
	return page, uintptr(unsafe.Pointer(&page[0])), nil
}
