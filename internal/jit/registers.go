package jit

// registerPool is the scratch-register free list, a FIFO queue:
// registers are handed out in allocation order and pushed back onto the
// tail when their operand is consumed. Modeled as a plain slice used as
// a queue, in the spirit of the teacher's nonBlockingChan generic queue
// (gvm vm/devices.go) but scoped to a single compile call with no
// concurrency.
type registerPool struct {
	free []int16
}

// newRegisterPool seeds the pool with the allocatable scratch registers:
// rax, rcx, r8, r9, r10, r11, rbx, r12, r13, r14, r15. rdi/rsi are
// reserved for the locals/exits base pointers and are never placed in
// the pool.
func newRegisterPool(scratch []int16) *registerPool {
	free := make([]int16, len(scratch))
	copy(free, scratch)
	return &registerPool{free: free}
}

// take pops the register at the head of the queue. The caller must only
// call this when it knows a register is available; running out of
// scratch registers for the traces this core compiles is a programmer
// error, not a runtime condition, so take panics on an empty pool.
func (p *registerPool) take() int16 {
	if len(p.free) == 0 {
		panic("jit: scratch register pool exhausted")
	}
	reg := p.free[0]
	p.free = p.free[1:]
	return reg
}

// release pushes reg onto the tail of the free queue.
func (p *registerPool) release(reg int16) {
	p.free = append(p.free, reg)
}

// reset restores the pool to the full scratch set. Compile does not call
// it: each lowerRecording call builds a fresh pool with newRegisterPool.
func (p *registerPool) reset(scratch []int16) {
	p.free = make([]int16, len(scratch))
	copy(p.free, scratch)
}
