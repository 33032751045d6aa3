package ir

// Instruction is a single tagged-union node: one struct shape for every
// opcode, with opcode-specific payload fields, instead of a class hierarchy
// reached via dynamic downcast. This is the REDESIGN FLAGS' "tagged union
// per instruction with opcode discriminant plus shared fields and
// opcode-specific payload" applied to spec.md §3's instruction taxonomy.
// Grounded on ssa.Instruction
// (tetratelabs-wazero/internal/engine/wazevo/ssa/instructions.go), which
// takes the identical approach (one struct, u1/u2/v/v2/v3/vs fields shared
// across all opcodes).
//
// Instructions are intrusive doubly-linked-list nodes (prev/next) within
// their owning Block, arena-allocated so that unlinking (logical deletion
// by a pass) never needs to free memory -- the arena is reclaimed only when
// the whole Section is dropped.
type Instruction struct {
	opcode Opcode
	typ    Type // result type; TypeVoid for instructions with no result.

	v1, v2, v3 Value
	vs         []Value // Jump's block-argument list.

	result Value // the Value this instruction defines; ValueInvalid if none.

	target  *Block // Jump target, or Branch's true-target.
	target2 *Block // Branch's false-target.

	aliasing int64     // Load/Store aliasing group.
	offset   uint64     // Load/Store immediate byte offset.
	flags    LoadFlags  // Load flags.
	comment  string     // OpComment payload.

	group groupID // assigned by DCE/CSE to partition side-effect epochs.

	block *Block // owning block, for O(1) "which block is this in".
	prev, next *Instruction

	unlinked bool // true once a pass has removed this from its block's list.
}

// groupID partitions a Section's instructions into side-effect epochs: two
// instructions share a groupID iff no side-effecting instruction appears
// between them in program order. Grounded on ssa.InstructionGroupID.
type groupID uint32

// Opcode returns this instruction's opcode.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Type returns the type of the Value this instruction produces (TypeVoid if
// HasResult() is false).
func (i *Instruction) Type() Type { return i.typ }

// Result returns the Value this instruction defines, or ValueInvalid.
func (i *Instruction) Result() Value { return i.result }

// Block returns the block this instruction currently belongs to.
func (i *Instruction) Block() *Block { return i.block }

// Unlinked reports whether a pass has logically deleted this instruction.
func (i *Instruction) Unlinked() bool { return i.unlinked }

// Next returns the next instruction in layout order within the block.
func (i *Instruction) Next() *Instruction { return i.next }

// Prev returns the previous instruction in layout order within the block.
func (i *Instruction) Prev() *Instruction { return i.prev }

// Arg returns the first operand.
func (i *Instruction) Arg() Value { return i.v1 }

// Arg2 returns the first two operands.
func (i *Instruction) Arg2() (Value, Value) { return i.v1, i.v2 }

// Arg3 returns the first three operands.
func (i *Instruction) Arg3() (Value, Value, Value) { return i.v1, i.v2, i.v3 }

// Args returns every operand of this instruction, including Jump's
// block-argument list.
func (i *Instruction) Args() []Value {
	switch i.opcode {
	case OpJump:
		return i.vs
	default:
		args := make([]Value, 0, 3)
		if i.v1.Valid() {
			args = append(args, i.v1)
		}
		if i.v2.Valid() {
			args = append(args, i.v2)
		}
		if i.v3.Valid() {
			args = append(args, i.v3)
		}
		return args
	}
}

// ForEachArg calls fn for every Value operand of this instruction
// (excluding block targets, which are reached via Target() and Target2()).
func (i *Instruction) ForEachArg(fn func(Value)) {
	switch i.opcode {
	case OpJump:
		for _, v := range i.vs {
			fn(v)
		}
		return
	}
	if i.v1.Valid() {
		fn(i.v1)
	}
	if i.v2.Valid() {
		fn(i.v2)
	}
	if i.v3.Valid() {
		fn(i.v3)
	}
}

// ReplaceArg substitutes every occurrence of old with repl among this
// instruction's operands in place -- invariant 1 requires repl have the
// same Type as old.
func (i *Instruction) ReplaceArg(old, repl Value) {
	if old.Type() != repl.Type() {
		panic("BUG: ReplaceArg type mismatch")
	}
	if i.v1 == old {
		i.v1 = repl
	}
	if i.v2 == old {
		i.v2 = repl
	}
	if i.v3 == old {
		i.v3 = repl
	}
	for idx, v := range i.vs {
		if v == old {
			i.vs[idx] = repl
		}
	}
}

// Comment returns OpComment's payload string.
func (i *Instruction) Comment() string { return i.comment }

// Aliasing returns a Load/Store's aliasing group.
func (i *Instruction) Aliasing() int64 { return i.aliasing }

// SetAliasing updates a Load/Store's aliasing group (used by RefineAliasing).
func (i *Instruction) SetAliasing(g int64) { i.aliasing = g }

// Offset returns a Load/Store's immediate byte offset.
func (i *Instruction) Offset() uint64 { return i.offset }

// SetOffset updates a Load/Store's immediate byte offset (used when folding
// AddPtr into a load/store).
func (i *Instruction) SetOffset(o uint64) { i.offset = o }

// Flags returns a Load's flags.
func (i *Instruction) Flags() LoadFlags { return i.flags }

// Target returns a Jump's target block, or a Branch's true-target.
func (i *Instruction) Target() *Block { return i.target }

// Target2 returns a Branch's false-target.
func (i *Instruction) Target2() *Block { return i.target2 }

// JumpArgs returns the block-argument list passed by a Jump.
func (i *Instruction) JumpArgs() []Value { return i.vs }

// GroupID returns the side-effect epoch this instruction belongs to.
func (i *Instruction) GroupID() uint32 { return uint32(i.group) }

// IsBranching reports whether this is a control-flow terminator that can
// transfer control to another block (Jump/Branch, not Exit).
func (i *Instruction) IsBranching() bool {
	return i.opcode == OpJump || i.opcode == OpBranch
}

func (i *Instruction) reset() {
	*i = Instruction{
		v1: ValueInvalid, v2: ValueInvalid, v3: ValueInvalid,
		result: ValueInvalid, typ: TypeVoid,
	}
}
