package interp

import (
	"fmt"

	"github.com/mjit-project/mjit/ir"
)

// Event reports what kind of step the interpreter just took. Grounded on
// original_source/jitir.tmpl.hpp's Interpreter::Event.
type Event int

const (
	// EventNone is returned by every step that neither exits nor crosses a
	// block boundary.
	EventNone Event = iota
	// EventExit is returned once an Exit instruction runs.
	EventExit
	// EventEnterBlock is returned whenever a Jump or Branch installs a new
	// current block.
	EventEnterBlock
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventNone:
		return "None"
	case EventExit:
		return "Exit"
	case EventEnterBlock:
		return "EnterBlock"
	default:
		return "Unknown"
	}
}

// Interpreter is a concrete-valued evaluator over a Section: every operand
// it touches must be fully known, unlike the abstract ir.KnownBits
// analysis it reuses for its default-case arithmetic. Grounded on
// original_source/jitir.tmpl.hpp's Interpreter class, which type-aliases
// its own runtime value representation directly to KnownBits::Bits for the
// same reason -- the transfer functions are identical, only the
// const-everywhere invariant differs.
type Interpreter struct {
	sec *ir.Section
	mem *Memory

	values []ir.KnownBitsValue // indexed by ValueID, sized to sec.NameCount().

	block *ir.Block
	inst  *ir.Instruction

	inputs  []ir.KnownBitsValue // consumed in order by OpInput.
	outputs []ir.KnownBitsValue // appended to by OpOutput.
}

// NewInterpreter builds an Interpreter over sec, entering its entry block
// with entryArgs (one constant value per entry-block parameter), backed by
// mem for Load/Store and inputs for OpInput. mem may be nil, in which case
// an empty Memory is allocated.
func NewInterpreter(sec *ir.Section, mem *Memory, entryArgs []ir.KnownBitsValue, inputs []ir.KnownBitsValue) *Interpreter {
	if mem == nil {
		mem = NewMemory()
	}
	it := &Interpreter{
		sec:    sec,
		mem:    mem,
		values: make([]ir.KnownBitsValue, sec.NameCount()),
		inputs: inputs,
	}
	it.enter(sec.Entry(), entryArgs)
	return it
}

// Section returns the Section under interpretation.
func (it *Interpreter) Section() *ir.Section { return it.sec }

// Block returns the current block (the interpreter's program counter).
func (it *Interpreter) Block() *ir.Block { return it.block }

// Inst returns the next instruction to execute.
func (it *Interpreter) Inst() *ir.Instruction { return it.inst }

// Outputs returns every value an OpOutput instruction has produced so far,
// in execution order.
func (it *Interpreter) Outputs() []ir.KnownBitsValue { return it.outputs }

// Memory returns the backing address space, for callers that want to seed
// or inspect it directly (e.g. comparing against a compiled build's
// memory after Run).
func (it *Interpreter) Memory() *Memory { return it.mem }

// at resolves v to its current constant value: a literal Const reads
// straight from the Context, anything else reads the live values table.
func (it *Interpreter) at(v ir.Value) ir.KnownBitsValue {
	if v.IsConst() {
		return ir.NewConst(v.Type(), it.sec.Context().ConstValue(v))
	}
	return it.values[v.ID()]
}

// enter installs args into block's parameters and resets the program
// counter to its first instruction, asserting every arg is a fully-known
// constant of the matching type (per spec.md §4.5: "all operand values
// must be constant at runtime; the interpreter asserts this").
func (it *Interpreter) enter(block *ir.Block, args []ir.KnownBitsValue) {
	if len(args) != block.Params() {
		panic(fmt.Sprintf("BUG: %s expects %d arguments, got %d", block.Name(), block.Params(), len(args)))
	}
	it.block = block
	it.inst = block.Root()
	for i := 0; i < block.Params(); i++ {
		p := block.Param(i)
		if args[i].Typ != p.Type() {
			panic(fmt.Sprintf("BUG: %s argument %d has type %s, want %s", block.Name(), i, args[i].Typ, p.Type()))
		}
		if !args[i].IsConst() {
			panic(fmt.Sprintf("BUG: %s argument %d is not constant", block.Name(), i))
		}
		it.values[p.ID()] = args[i]
	}
}

// Step executes exactly one instruction and reports what happened.
func (it *Interpreter) Step() Event {
	inst := it.inst
	if inst == nil {
		panic("BUG: stepping past a block with no terminator")
	}

	switch inst.Opcode() {
	case ir.OpLoad:
		ptr := it.at(inst.Arg())
		if !ptr.IsConst() {
			panic("BUG: load address is not constant")
		}
		addr := ptr.Value + inst.Offset()
		val := it.mem.Read(addr, inst.Type().Size())
		it.setResult(inst, ir.NewConst(inst.Type(), val))

	case ir.OpStore:
		ptrArg, valArg := inst.Arg2()
		ptr, val := it.at(ptrArg), it.at(valArg)
		if !ptr.IsConst() || !val.IsConst() {
			panic("BUG: store address or value is not constant")
		}
		addr := ptr.Value + inst.Offset()
		it.mem.Write(addr, valArg.Type().Size(), val.Value)

	case ir.OpInput:
		if len(it.inputs) == 0 {
			panic("BUG: input requested beyond the provided input stream")
		}
		v := it.inputs[0]
		it.inputs = it.inputs[1:]
		it.setResult(inst, v)

	case ir.OpOutput:
		v := it.at(inst.Arg())
		if !v.IsConst() {
			panic("BUG: output value is not constant")
		}
		it.outputs = append(it.outputs, v)

	case ir.OpJump:
		args := make([]ir.KnownBitsValue, len(inst.JumpArgs()))
		for i, a := range inst.JumpArgs() {
			args[i] = it.at(a)
		}
		it.enter(inst.Target(), args)
		return EventEnterBlock

	case ir.OpBranch:
		cond := it.at(inst.Arg())
		if !cond.IsConst() {
			panic("BUG: branch condition is not constant")
		}
		if cond.Value != 0 {
			it.enter(inst.Target(), nil)
		} else {
			it.enter(inst.Target2(), nil)
		}
		return EventEnterBlock

	case ir.OpExit:
		return EventExit

	case ir.OpComment:
		// no-op

	default:
		it.setResult(inst, ir.EvalInst(inst, it.at))
	}

	it.inst = it.inst.Next()
	return EventNone
}

func (it *Interpreter) setResult(inst *ir.Instruction, v ir.KnownBitsValue) {
	if !v.IsConst() && inst.Type() != ir.TypeVoid {
		panic(fmt.Sprintf("BUG: %s produced a non-constant result", inst.Opcode()))
	}
	if inst.Result().Valid() {
		it.values[inst.Result().ID()] = v
	}
}

// RunUntil steps until event (or EventExit, whichever comes first) occurs,
// and returns whichever it was.
func (it *Interpreter) RunUntil(event Event) Event {
	for {
		e := it.Step()
		if e == event || e == EventExit {
			return e
		}
	}
}

// RunFor steps at most n times, stopping early on EventExit.
func (it *Interpreter) RunFor(n int) Event {
	for i := 0; i < n; i++ {
		if e := it.Step(); e == EventExit {
			return e
		}
	}
	return EventNone
}

// Run steps until the section exits.
func (it *Interpreter) Run() Event {
	return it.RunUntil(EventExit)
}

// RunUntilBlock steps until entry into the named block, or exit, whichever
// comes first -- a debugger-style breakpoint-by-name entrypoint. Grounded
// on original_source/interactive.hpp's Debugger, which drives the same
// run_until(EnterBlock) loop from its keyboard handler and checks the
// resulting block's name against the user's breakpoint.
func (it *Interpreter) RunUntilBlock(name string) Event {
	for {
		e := it.RunUntil(EventEnterBlock)
		if e == EventExit {
			return e
		}
		if it.block.Name() == name {
			return e
		}
	}
}
