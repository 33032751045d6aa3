package ir

import "github.com/mjit-project/mjit/internal/arena"

// Section is a self-contained compilation unit: an ordered list of Blocks
// (the first is the entry block) plus the arena that owns them. Grounded on
// original_source/jitir.tmpl.hpp's Section/Block pairing and on
// ssa.builder's per-function reuse pattern
// (tetratelabs-wazero/internal/engine/wazevo/ssa/builder.go), simplified
// because -- per spec.md's Non-goals -- a Section is never rebuilt in place
// for a second function; each compilation allocates its own Section.
type Section struct {
	ctx *Context

	blockArena *arena.Arena[Block]
	instArena  *arena.Arena[Instruction]

	blocks []*Block

	nextID ValueID
	defs   []*Instruction // indexed by ValueID; nil entries are Arg-kind IDs.
}

// NewSection creates an empty Section against the given (possibly shared)
// Context.
func NewSection(ctx *Context) *Section {
	return &Section{
		ctx:        ctx,
		blockArena: arena.New[Block](),
		instArena:  arena.New[Instruction](),
	}
}

// Context returns the owning Context (the shared constant arena).
func (s *Section) Context() *Context { return s.ctx }

// AllocateBlock creates a new, empty Block, appended after every
// previously allocated block. The first block ever allocated is the entry
// block.
func (s *Section) AllocateBlock() *Block {
	b := s.blockArena.Allocate()
	b.id = BlockID(len(s.blocks))
	s.blocks = append(s.blocks, b)
	return b
}

// Entry returns the Section's entry block.
func (s *Section) Entry() *Block {
	if len(s.blocks) == 0 {
		panic("BUG: Section has no blocks")
	}
	return s.blocks[0]
}

// Blocks returns every block in allocation order, including any made
// invalid by a pass (callers that need only reachable blocks should use
// BlockIDs from a CFG walk instead).
func (s *Section) Blocks() []*Block { return s.blocks }

// BlockCount returns the number of blocks allocated in this Section.
func (s *Section) BlockCount() int { return len(s.blocks) }

// NameCount returns one past the highest ValueID assigned to a named value
// (Arg or Inst) in this Section -- the size any NameMap side table must
// have.
func (s *Section) NameCount() int { return int(s.nextID) }

// Autoname is kept for API parity with spec.md's "autoname()" entrypoint.
// Because this implementation assigns dense IDs immediately at allocation
// time (grounded on ssa.builder.allocateValue, which does the same), there
// is no deferred renumbering to perform; Autoname simply returns the
// current NameCount so callers that expect a pass-then-query idiom still
// work.
func (s *Section) Autoname() int { return s.NameCount() }

func (s *Section) allocateNamedValue(typ Type, kind valueKind) Value {
	id := s.nextID
	s.nextID++
	s.defs = append(s.defs, nil)
	return newValue(kind, typ, id)
}

// allocateInst reserves arena storage for a new instruction of the given
// opcode, with no operands or result set yet.
func (s *Section) allocateInst(op Opcode) *Instruction {
	inst := s.instArena.Allocate()
	inst.reset()
	inst.opcode = op
	return inst
}

// bindResult allocates the named Value an instruction produces and records
// the Value -> *Instruction mapping used by InstByValue.
func (s *Section) bindResult(inst *Instruction, typ Type) Value {
	v := s.allocateNamedValue(typ, valueKindInst)
	inst.typ = typ
	inst.result = v
	s.defs[v.ID()] = inst
	return v
}

// InstByValue returns the instruction that produced v, and false if v is
// not an Inst-kind Value (a Const or an Arg has no producing instruction).
func (s *Section) InstByValue(v Value) (*Instruction, bool) {
	if !v.IsInst() {
		return nil, false
	}
	inst := s.defs[v.ID()]
	return inst, inst != nil
}
