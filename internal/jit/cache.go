// Package jit lowers a finalized trace recording to native x86-64
// machine code and caches it keyed by entry program counter. The
// dynamic-assembler plumbing (golang-asm) and the mmap-based
// executable-buffer allocation are grounded on the wazero JIT engine
// (other_examples/jit_amd64.go) generalized from a WebAssembly
// operand-stack ISA to this engine's stack-bytecode traces.
package jit

import (
	"fmt"
	"sync"

	"github.com/clflushopt/coldbrew/internal/program"
)

// NativeTrace is an (entry offset, owned executable buffer) pair. The
// buffer is kept alive for the life of the cache entry; there is no
// eviction in this core.
type NativeTrace struct {
	EntryOffset int
	code        []byte
	entry       uintptr
}

// Cache installs and looks up NativeTraces keyed by entry PC. Owned
// exclusively by the interpreter; a mutex guards it only so tests and
// callers outside the hot loop can inspect it safely.
type Cache struct {
	mu     sync.RWMutex
	traces map[program.PC]*NativeTrace
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{traces: make(map[program.PC]*NativeTrace)}
}

// HasNativeTrace reports whether pc has an installed trace.
func (c *Cache) HasNativeTrace(pc program.PC) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.traces[pc]
	return ok
}

// Lookup returns the trace installed at pc, if any.
func (c *Cache) Lookup(pc program.PC) (*NativeTrace, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.traces[pc]
	return t, ok
}

// install inserts trace keyed by pc.
func (c *Cache) install(pc program.PC, trace *NativeTrace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traces[pc] = trace
}

// ErrUnsupportedArch is returned by Compile on architectures this core
// has no lowering backend for; only amd64 is implemented here.
var ErrUnsupportedArch = fmt.Errorf("jit: unsupported architecture")
