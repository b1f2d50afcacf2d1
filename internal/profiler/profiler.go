// Package profiler tracks per-PC hit counts and decides when a program
// counter is "hot" by counting only backward branch targets within the
// same method, which finds loop headers without a static CFG. Grounded
// on the teacher's debug-mode single-step bookkeeping (gvm vm/vm.go
// execInstructions) generalized from "step count" to "per-PC hit
// count."
package profiler

import "github.com/clflushopt/coldbrew/internal/program"

// DefaultThreshold is the hotness threshold: a PC is hot once its count
// exceeds (not reaches) this value.
const DefaultThreshold = 2

// Profiler counts backward-branch-target hits per PC and reports
// hotness once a PC's count passes the configured threshold.
type Profiler struct {
	threshold int
	counts    map[program.PC]int
	lastPC    program.PC
	hasLast   bool
}

// New returns a Profiler using threshold as the hotness cutoff.
func New(threshold int) *Profiler {
	return &Profiler{threshold: threshold, counts: make(map[program.PC]int)}
}

// CountEntry records a visit to pc. The count only increments when pc
// is a backward branch target in the same method as the previously
// observed PC: pc.MethodIndex == last.MethodIndex and
// pc.InstructionIndex < last.InstructionIndex. last_pc updates on every
// call regardless.
func (p *Profiler) CountEntry(pc program.PC) {
	if p.hasLast && pc.SameMethod(p.lastPC) && pc.InstructionIndex < p.lastPC.InstructionIndex {
		p.counts[pc]++
	}
	p.lastPC = pc
	p.hasLast = true
}

// IsHot reports whether pc's count has exceeded the threshold.
func (p *Profiler) IsHot(pc program.PC) bool {
	return p.counts[pc] > p.threshold
}

// Count exposes the raw hit count for pc, mainly for tests asserting
// that a counted PC's count is strictly positive.
func (p *Profiler) Count(pc program.PC) int {
	return p.counts[pc]
}
