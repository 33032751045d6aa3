package ir

// Opcode enumerates every instruction kind this IR supports. The set is
// closed (spec.md §3's "instruction taxonomy"). Grounded structurally on
// ssa.Opcode's giant const-block
// (tetratelabs-wazero/internal/engine/wazevo/ssa/instructions.go) but data
// for each opcode (does it produce a result, is it a terminator, does it
// have a side effect) lives in one table below rather than scattered
// switch statements -- this is the "single authoritative opcode definition
// file" the REDESIGN FLAGS call for in place of a preprocessor-generated
// opcode table.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	OpAdd
	OpSub
	OpMul
	OpDivU
	OpDivS
	OpModU
	OpModS

	OpAnd
	OpOr
	OpXor
	OpShl
	OpShrU
	OpShrS

	OpEq
	OpLtU
	OpLtS

	OpResizeU
	OpResizeS
	OpResizeX

	OpLoad
	OpStore
	OpAddPtr

	OpJump
	OpBranch
	OpExit

	OpSelect

	OpComment
	OpFreeze
	OpAssumeConst
	OpInput
	OpOutput

	opcodeCount
)

// SideEffect classifies how DeadCodeElim and the instruction-group
// partitioning used by CSE/regalloc may treat an opcode. Grounded directly
// on ssa's sideEffectNone/sideEffectTraps/sideEffectStrict trichotomy
// (ssa/instructions.go) rather than this module's earlier plain bool,
// since DCE needs the middle case: an always-live instruction that still
// doesn't force a new side-effect group (trapping division).
type SideEffect byte

const (
	// SideEffectNone instructions can be eliminated if their result is
	// unused, and freely reordered within their instruction group.
	SideEffectNone SideEffect = iota
	// SideEffectTraps instructions (signed/unsigned div and mod) are
	// always live even with an unused result, but multiple trapping
	// instructions may still share one instruction group.
	SideEffectTraps
	// SideEffectStrict instructions are always live and begin a new
	// instruction group, so nothing may be reordered across them.
	SideEffectStrict
)

type opcodeInfo struct {
	name         string
	hasResult    bool
	isTerminator bool
	effect       SideEffect
	commutative  bool
}

var opcodeTable = [opcodeCount]opcodeInfo{
	OpInvalid: {name: "invalid"},

	OpAdd:  {name: "add", hasResult: true, commutative: true},
	OpSub:  {name: "sub", hasResult: true},
	OpMul:  {name: "mul", hasResult: true, commutative: true},
	OpDivU: {name: "div_u", hasResult: true, effect: SideEffectTraps},
	OpDivS: {name: "div_s", hasResult: true, effect: SideEffectTraps},
	OpModU: {name: "mod_u", hasResult: true, effect: SideEffectTraps},
	OpModS: {name: "mod_s", hasResult: true, effect: SideEffectTraps},

	OpAnd:  {name: "and", hasResult: true, commutative: true},
	OpOr:   {name: "or", hasResult: true, commutative: true},
	OpXor:  {name: "xor", hasResult: true, commutative: true},
	OpShl:  {name: "shl", hasResult: true},
	OpShrU: {name: "shr_u", hasResult: true},
	OpShrS: {name: "shr_s", hasResult: true},

	OpEq:  {name: "eq", hasResult: true, commutative: true},
	OpLtU: {name: "lt_u", hasResult: true},
	OpLtS: {name: "lt_s", hasResult: true},

	OpResizeU: {name: "resize_u", hasResult: true},
	OpResizeS: {name: "resize_s", hasResult: true},
	OpResizeX: {name: "resize_x", hasResult: true},

	OpLoad:   {name: "load", hasResult: true},
	OpStore:  {name: "store", effect: SideEffectStrict},
	OpAddPtr: {name: "add_ptr", hasResult: true},

	OpJump:   {name: "jump", isTerminator: true, effect: SideEffectStrict},
	OpBranch: {name: "branch", isTerminator: true, effect: SideEffectStrict},
	OpExit:   {name: "exit", isTerminator: true, effect: SideEffectStrict},

	OpSelect: {name: "select", hasResult: true},

	OpComment:     {name: "comment"},
	OpFreeze:      {name: "freeze", hasResult: true},
	OpAssumeConst: {name: "assume_const", hasResult: true},
	OpInput:       {name: "input", hasResult: true, effect: SideEffectStrict},
	OpOutput:      {name: "output", effect: SideEffectStrict},
}

// String implements fmt.Stringer.
func (op Opcode) String() string {
	if op >= opcodeCount {
		return "invalid"
	}
	return opcodeTable[op].name
}

// HasResult reports whether this opcode produces a named Value.
func (op Opcode) HasResult() bool { return opcodeTable[op].hasResult }

// IsTerminator reports whether this opcode may only appear as a block's
// last instruction.
func (op Opcode) IsTerminator() bool { return opcodeTable[op].isTerminator }

// Effect returns this opcode's SideEffect classification.
func (op Opcode) Effect() SideEffect { return opcodeTable[op].effect }

// HasSideEffect reports whether this instruction must always be treated as
// live by DeadCodeElim (SideEffectTraps or SideEffectStrict).
func (op Opcode) HasSideEffect() bool { return opcodeTable[op].effect != SideEffectNone }

// Commutative reports whether operand order is semantically irrelevant,
// used by the folding builder and CSE to canonicalize operand order.
func (op Opcode) Commutative() bool { return opcodeTable[op].commutative }

// LoadFlags are bit flags attached to Load instructions (spec.md §3).
type LoadFlags uint8

const (
	// LoadPure marks a load as purely a function of its address -- it may
	// be freely duplicated/hoisted/CSE'd as long as no intervening store
	// to an aliasing address exists.
	LoadPure LoadFlags = 1 << iota
	// LoadInBounds marks a load as known not to trap, a precondition for
	// ChainLoopMem2Reg promoting it out of its loop.
	LoadInBounds
	// LoadEntryFrozen marks a load's value as fixed at section entry.
	LoadEntryFrozen
)

func (f LoadFlags) Has(flag LoadFlags) bool { return f&flag != 0 }
