package ir

import "fmt"

// BlockID is the unique, dense identifier of a Block within its Section,
// assigned in allocation order.
type BlockID uint32

// Block is an ordered list of instructions with an ordered list of
// parameters, ending in exactly one terminator once construction is
// complete. Grounded on basicBlock
// (tetratelabs-wazero/internal/engine/wazevo/ssa/basic_block.go), trimmed
// of the incremental-SSA-construction machinery (sealed/unknownValues/
// lastDefinitions) that wazero's block needs and this IR does not, since
// spec.md's Non-goals state the input already arrives in block-argument
// form.
type Block struct {
	id     BlockID
	params []Value

	root, tail *Instruction

	preds []*predEdge
	succs []*Block

	loopHeader bool
}

type predEdge struct {
	blk    *Block
	branch *Instruction
}

// ID returns this block's dense identifier.
func (b *Block) ID() BlockID { return b.id }

// Name returns a debug name, e.g. "b3".
func (b *Block) Name() string { return fmt.Sprintf("b%d", b.id) }

// EntryBlock reports whether this is a Section's entry block (block 0).
func (b *Block) EntryBlock() bool { return b.id == 0 }

// AddParam appends a new parameter of type typ to this block and returns
// its Value.
func (b *Block) AddParam(s *Section, typ Type) Value {
	v := s.allocateNamedValue(typ, valueKindArg)
	b.params = append(b.params, v)
	return v
}

// addParamValue appends a parameter whose Value is already allocated (used
// by ChainLoopMem2Reg when threading a new loop-carried value).
func (b *Block) addParamValue(v Value) {
	b.params = append(b.params, v)
}

// Params returns the number of parameters this block declares.
func (b *Block) Params() int { return len(b.params) }

// Param returns the i-th parameter's Value.
func (b *Block) Param(i int) Value { return b.params[i] }

// ParamValues returns every parameter Value, in order.
func (b *Block) ParamValues() []Value { return b.params }

// Root returns the first instruction in this block, or nil if empty.
func (b *Block) Root() *Instruction { return b.root }

// Tail returns the last instruction in this block, or nil if empty.
func (b *Block) Tail() *Instruction { return b.tail }

// Terminator returns the block's terminator instruction. Panics if the
// block is empty or its last instruction is not a terminator -- callers
// should run Verify first.
func (b *Block) Terminator() *Instruction {
	if b.tail == nil || !b.tail.opcode.IsTerminator() {
		panic("BUG: block has no terminator")
	}
	return b.tail
}

// InsertInstruction appends inst to the tail of this block's instruction
// list and, for Jump/Branch, records the predecessor edge(s) on the
// target(s).
func (b *Block) InsertInstruction(inst *Instruction) {
	inst.block = b
	if b.tail != nil {
		b.tail.next = inst
		inst.prev = b.tail
	} else {
		b.root = inst
	}
	b.tail = inst

	switch inst.opcode {
	case OpJump:
		inst.target.addPred(b, inst)
	case OpBranch:
		inst.target.addPred(b, inst)
		inst.target2.addPred(b, inst)
	}
}

// Unlink removes inst from this block's instruction list without
// deallocating it (logical deletion per spec.md §3 Lifecycle).
func (b *Block) Unlink(inst *Instruction) {
	if inst.unlinked {
		return
	}
	if inst.prev != nil {
		inst.prev.next = inst.next
	} else {
		b.root = inst.next
	}
	if inst.next != nil {
		inst.next.prev = inst.prev
	} else {
		b.tail = inst.prev
	}
	inst.unlinked = true
}

// InsertBefore inserts inst immediately before mark in this block's list.
func (b *Block) InsertBefore(mark, inst *Instruction) {
	inst.block = b
	inst.prev = mark.prev
	inst.next = mark
	if mark.prev != nil {
		mark.prev.next = inst
	} else {
		b.root = inst
	}
	mark.prev = inst
}

func (b *Block) addPred(pred *Block, branch *Instruction) {
	b.preds = append(b.preds, &predEdge{blk: pred, branch: branch})
	pred.succs = append(pred.succs, b)
}

// Preds returns the number of predecessor edges recorded for this block.
func (b *Block) Preds() int { return len(b.preds) }

// PredBlock returns the i-th predecessor block.
func (b *Block) PredBlock(i int) *Block { return b.preds[i].blk }

// PredBranch returns the branch instruction responsible for the i-th
// predecessor edge.
func (b *Block) PredBranch(i int) *Instruction { return b.preds[i].branch }

// Succs returns this block's successor blocks in the order their edges
// were created.
func (b *Block) Succs() []*Block { return b.succs }

// Insts returns every live (non-unlinked) instruction in layout order.
func (b *Block) Insts() []*Instruction {
	out := make([]*Instruction, 0, 8)
	for i := b.root; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}
