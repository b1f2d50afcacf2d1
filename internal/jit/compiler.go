package jit

import (
	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/trace"
)

// Compiler lowers recordings to native code and installs them into a
// Cache. The architecture-specific lowering lives behind the
// lowerRecording build-tagged function (compiler_amd64.go /
// compiler_stub.go).
type Compiler struct {
	cache *Cache
}

// NewCompiler returns a Compiler that installs traces into cache.
func NewCompiler(cache *Cache) *Compiler {
	return &Compiler{cache: cache}
}

// Compile lowers rec to native code and installs it into the cache
// keyed by rec.Start.
func (c *Compiler) Compile(rec trace.Recording) (*NativeTrace, error) {
	nt, err := lowerRecording(rec)
	if err != nil {
		return nil, err
	}
	c.cache.install(rec.Start, nt)
	return nt, nil
}

// HasNativeTrace and Execute forward to the underlying cache, so the
// interpreter can treat the Compiler+Cache pair as a single JIT
// collaborator.
func (c *Compiler) HasNativeTrace(pc program.PC) bool { return c.cache.HasNativeTrace(pc) }
