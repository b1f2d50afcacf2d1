// Package interp implements the stack interpreter: a frame stack, a
// fetch/decode/evaluate loop, typed arithmetic/control-flow dispatch,
// and the hot-path wiring that consults the profiler on every step and,
// with the JIT enabled, the trace recorder and the JIT cache. Grounded on the teacher's
// VM execution loop (gvm vm/exec.go execInstructions / vm/vm.go)
// generalized from a flat register machine to a stack-of-frames call
// model with typed values.
package interp

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clflushopt/coldbrew/internal/bytecode"
	"github.com/clflushopt/coldbrew/internal/frame"
	"github.com/clflushopt/coldbrew/internal/jit"
	"github.com/clflushopt/coldbrew/internal/profiler"
	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/trace"
	"github.com/clflushopt/coldbrew/internal/value"
)

// Result is the observable outcome of a Run: the side list of values
// popped by every typed return, in the order they occurred. Observing
// the return-value stack yields the top of the last *return
// instruction's popped value.
type Result struct {
	Returns []value.Value
}

// Last returns the most recent typed-return value, if any.
func (r Result) Last() (value.Value, bool) {
	if len(r.Returns) == 0 {
		return value.Value{}, false
	}
	return r.Returns[len(r.Returns)-1], true
}

// Interpreter owns the frame stack and drives execution. The profiler,
// recorder, and JIT cache are its exclusive collaborators — no other
// component mutates them.
type Interpreter struct {
	prog     *program.Program
	profiler *profiler.Profiler
	recorder *trace.Recorder
	compiler *jit.Compiler
	cache    *jit.Cache
	log      *logrus.Entry

	frames     []*frame.Frame
	recordDepth int // len(frames) at the moment recording started
	returns    []value.Value
}

// New builds an Interpreter over prog. hotnessThreshold configures the
// profiler's hotness counter; log is the entry every component threads
// through construction rather than reaching for a global logger.
func New(prog *program.Program, hotnessThreshold int, log *logrus.Entry) *Interpreter {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	cache := jit.NewCache()
	return &Interpreter{
		prog:     prog,
		profiler: profiler.New(hotnessThreshold),
		recorder: trace.New(func(nameIndex int32) (int, bool) {
			idx, err := prog.MethodIndexByName(int(nameIndex))
			if err != nil {
				return 0, false
			}
			return idx, true
		}),
		compiler: jit.NewCompiler(cache),
		cache:    cache,
		log:      log.WithField("pkg", "interp"),
	}
}

func (in *Interpreter) top() *frame.Frame { return in.frames[len(in.frames)-1] }

// Run pushes an initial frame at entry_point() and loops until the
// frame stack empties. Structural violations — stack underflow, unknown
// opcodes, a JIT that fails to finalize — are fatal assertions raised
// as panics deep inside step/eval; the deferred recover here is the
// only place that turns one back into a returned error, the way the
// teacher's own run loop isolates a single faulted instruction from
// crashing the host process.
func (in *Interpreter) Run(jitEnabled bool) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			fault, ok := r.(error)
			if !ok {
				fault = fmt.Errorf("interp: fatal fault: %v", r)
			}
			in.log.WithError(fault).Error("fatal fault, terminating run")
			result = Result{Returns: in.returns}
			err = fault
		}
	}()

	nameIndex, err := in.prog.EntryPoint()
	if err != nil {
		return Result{}, err
	}
	methodIndex, err := in.prog.MethodIndexByName(nameIndex)
	if err != nil {
		return Result{}, err
	}

	in.frames = []*frame.Frame{frame.New(program.PC{MethodIndex: methodIndex, InstructionIndex: 0})}
	in.returns = nil

	for len(in.frames) > 0 {
		if err := in.step(jitEnabled); err != nil {
			in.log.WithError(err).Error("recoverable eval error, terminating run")
			return Result{Returns: in.returns}, err
		}
	}
	return Result{Returns: in.returns}, nil
}

// step executes exactly one dispatch: either a native-trace transfer or
// one interpreted instruction.
func (in *Interpreter) step(jitEnabled bool) error {
	f := in.top()
	pc := f.PC

	if jitEnabled && in.compiler.HasNativeTrace(pc) {
		method, err := in.prog.Method(pc.MethodIndex)
		if err != nil {
			return err
		}
		next, err := in.compiler.Execute(pc, f, method.MaxLocals)
		if err != nil {
			panic(fmt.Errorf("interp: jit execute at %s: %w", pc, err))
		}
		in.log.WithField("pc", pc).Debug("native trace executed")
		f.PC = next
		return nil
	}

	inst, declPC, err := in.prog.Decode(pc)
	if err != nil {
		return err
	}
	if inst.Op == bytecode.Unspecified {
		panic(&UnknownOpcodeError{PC: pc})
	}

	in.profiler.CountEntry(pc)
	if jitEnabled {
		in.maybeRecord(pc, inst)
	}

	if err := in.eval(f, pc, declPC, inst); err != nil {
		return err
	}

	if jitEnabled {
		in.maybeFinishRecording()
	}
	return nil
}

// maybeRecord feeds (pc, inst) to the recorder when it is either
// actively recording at the current frame depth, or the profiler has
// just declared pc hot and no native trace exists yet for it. Entries
// decoded while executing inside a non-recursive callee (frame depth >
// recordDepth) are never fed to the recorder: every recorded PC must
// share the start's method index, which callee-body instructions would
// otherwise violate.
func (in *Interpreter) maybeRecord(pc program.PC, inst bytecode.Instruction) {
	depth := len(in.frames)

	if in.recorder.IsRecording() {
		if depth != in.recordDepth {
			return
		}
		if ok := in.recorder.Record(pc, inst); !ok {
			in.log.WithField("pc", pc).Warn("recording aborted: recursive invokestatic")
		}
		return
	}

	if in.profiler.IsHot(pc) && !in.compiler.HasNativeTrace(pc) {
		in.recorder.Init(pc, pc)
		in.recordDepth = depth
		in.log.WithField("pc", pc).Debug("recording started")
		in.recorder.Record(pc, inst)
	}
}

// maybeFinishRecording checks the current top frame's PC against the
// loop header once recording is active at the home frame depth, and
// installs a finished recording into the JIT. A finalize failure is
// fatal: the engine never falls back to interpretation at the
// instruction level once compile is attempted, so it panics through to
// Run's recover boundary rather than returning.
func (in *Interpreter) maybeFinishRecording() {
	if !in.recorder.IsRecording() || len(in.frames) != in.recordDepth {
		return
	}
	pc := in.top().PC
	if !in.recorder.IsDoneRecording(pc) {
		return
	}
	rec := in.recorder.Snapshot()
	if _, err := in.compiler.Compile(rec); err != nil {
		panic(fmt.Errorf("interp: jit compile for trace at %s: %w", rec.Start, err))
	}
	in.log.WithField("start", rec.Start).WithField("entries", len(rec.Entries)).Debug("trace compiled")
}
