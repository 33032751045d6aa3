package amd64

import (
	"fmt"

	"github.com/mjit-project/mjit/backend/regalloc"
)

// Kind enumerates the concrete instruction forms this backend emits, one
// per x86insts.inc.hpp table entry it exercises (Mov8/16/32/64 and their
// memory/immediate variants, Lea64, the integer ALU ops, Div, the Set/CMov
// condition-code forms, and the four conditional jumps spec.md's
// comparison opcodes need). MovZX/MovSX widening moves are a documented
// extension beyond the literal table (see instr_encoding.go), needed for
// ResizeU/ResizeS's zero/sign-extension semantics, which x86insts.inc.hpp's
// same-width Mov* forms alone cannot express.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindMovRR        // Dst:reg = Src:reg/mem, width-sized
	KindMovRI        // Dst:reg = Src:imm (fits in 32 bits, sign-extended)
	KindMovRI64      // Dst:reg = Src:imm, full 64-bit (Mov64Imm64)
	KindMovStore     // Dst:mem = Src:reg
	KindMovZX        // Dst:reg(64) = zero_extend(Src:reg/mem, Width)
	KindMovSX        // Dst:reg(64) = sign_extend(Src:reg/mem, Width)
	KindLea          // Dst:reg = address-of(Src:mem)
	KindAdd
	KindSub
	KindIMul
	KindDiv  // unsigned divide: Extra[0](RDX):Extra[1](RAX) / Src -> RAX quotient, RDX remainder
	KindIDiv // signed divide, same operand contract as Div
	KindAnd
	KindOr
	KindXor
	KindShl // shift count is Src, fixed to RCX by the allocator (implicit CL in the encoding)
	KindShr
	KindSar
	KindCmp  // compares Dst, Src (both uses, no def)
	KindTest // test Dst, Dst -- turns a bool vreg into flags for Select
	KindSetE
	KindSetL
	KindSetB
	KindCMovNZ
	KindCMovE
	KindCMovL
	KindCMovB
	KindJmp
	KindJNE
	KindJE
	KindJL
	KindJB
	KindRet
)

// OperandKind discriminates Operand.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandReg
	OperandMem
	OperandImm
)

// Mem is a base(+scale*index)(+disp) memory operand. Grounded on
// X86Inst::Mem.
type Mem struct {
	Base  Reg
	Scale byte
	Index Reg
	Disp  int32
}

// Operand is either nothing, a register, a memory location, or an
// immediate -- the Go equivalent of X86Inst::RM plus the immediate case
// folded in, since this port has no variant type and no need for one.
type Operand struct {
	Kind OperandKind
	Reg  Reg
	Mem  Mem
	Imm  uint64
}

func RegOperand(r Reg) Operand     { return Operand{Kind: OperandReg, Reg: r} }
func MemOperand(m Mem) Operand     { return Operand{Kind: OperandMem, Mem: m} }
func ImmOperand(v uint64) Operand  { return Operand{Kind: OperandImm, Imm: v} }
func NoOperand() Operand           { return Operand{Kind: OperandNone} }

// Inst is one machine instruction in its pre-encoding, partly-virtual
// form: Dst/Src/Extra name vregs until Allocate runs, after which every
// Reg field holds a physical register. Grounded on X86Inst, flattened
// from its reg/rm/imm triple (plus this port's own Extra field for the
// RAX/RDX pseudo-use div/mod need) since Go lacks the macro machinery the
// original uses to generate per-Kind builder methods.
type Inst struct {
	Kind  Kind
	Width byte // 1, 2, 4 or 8 -- operand size in bytes.
	Dst   Operand
	Src   Operand
	// Extra holds implicit operands beyond Dst/Src: for Div/IDiv,
	// Extra[0] is RDX and Extra[1] is RAX, both used-and-defined (the
	// "pseudo-use" that keeps the untouched half of the RDX:RAX pair
	// live across the instruction spec.md §4.6 calls for).
	Extra []Reg
	Block *Block // jump target, for Kind in {KindJmp,KindJNE,KindJE,KindJL,KindJB}

	name int // assigned by autoname; used by Interval tracking and IsFoldableMov.

	next, prev *Inst
}

// Block is a straight-line list of Inst ending in a control-flow
// instruction (Jmp/Jcc/Ret). Grounded on X86Block, using a slice instead
// of X86Block's hand-rolled intrusive list since this backend never needs
// mid-list insertion after isel the way ir's loop passes do.
type Block struct {
	Name  string
	Insts []*Inst

	// EntryState is the committed physical-register contents this block
	// expects on entry, filled in by Allocate; nil until allocation reaches
	// this block. ExitState is not assigned by Allocate and stays nil.
	EntryState, ExitState []regalloc.Reg

	succs []*Block
	preds []*Block
}

// Func is one compiled ir.Section: its Blocks in layout order plus the
// vreg table every Inst's virtual operands index into. Grounded on the
// (Section, vector<X86Block*>) pair X86CodeGen carries.
type Func struct {
	Blocks []*Block
	VRegs  regalloc.VRegTable
	// EntryArgs holds the fixed vreg bound to each entry-block parameter,
	// in order -- the seed Allocate loads into the register file before
	// processing the entry block, matching
	// X86CodeGen::regalloc's `_section->entry()->args()` walk.
	EntryArgs []Reg
	// FrameSize is the number of bytes of spill space Allocate claimed;
	// valid only after Allocate has run.
	FrameSize int
}

// visitRegs calls fn once for every register this instruction reads or
// writes (Dst, Src, Src's memory base/index, and Extra) -- used both for
// Interval tracking (pre-allocation) and the final register-rewrite pass
// (post-allocation). Grounded on X86Inst::visit_regs.
func (i *Inst) visitRegs(fn func(*Reg)) {
	visitOperand(&i.Dst, fn)
	visitOperand(&i.Src, fn)
	for idx := range i.Extra {
		fn(&i.Extra[idx])
	}
}

func visitOperand(o *Operand, fn func(*Reg)) {
	switch o.Kind {
	case OperandReg:
		fn(&o.Reg)
	case OperandMem:
		if !o.Mem.Base.IsInvalid() {
			fn(&o.Mem.Base)
		}
		if !o.Mem.Index.IsInvalid() {
			fn(&o.Mem.Index)
		}
	}
}

// useDef classifies, for each operand slot, how it participates:
// read-before-written (read-modify-write), written only, or read only.
// Grounded on x86insts.inc.hpp's usedef macros (mov_usedef/
// mov_mem_usedef/binop_usedef/imm_usedef/cmp_usedef/cmp_imm_usedef).
type useDef struct {
	dstIsDef, dstIsUse bool
	srcIsUse           bool
}

var kindUseDef = map[Kind]useDef{
	KindMovRR:    {dstIsDef: true, srcIsUse: true},
	KindMovRI:    {dstIsDef: true},
	KindMovRI64:  {dstIsDef: true},
	KindMovZX:    {dstIsDef: true, srcIsUse: true},
	KindMovSX:    {dstIsDef: true, srcIsUse: true},
	KindLea:      {dstIsDef: true, srcIsUse: true},
	KindMovStore: {dstIsUse: true, srcIsUse: true}, // Dst is the memory address (use), Src is the stored value (use)
	KindAdd:      {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindSub:      {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindIMul:     {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindAnd:      {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindOr:       {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindXor:      {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindShl:      {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindShr:      {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindSar:      {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindCmp:      {dstIsUse: true, srcIsUse: true},
	KindTest:     {dstIsUse: true, srcIsUse: true},
	KindSetE:     {dstIsDef: true},
	KindSetL:     {dstIsDef: true},
	KindSetB:     {dstIsDef: true},
	KindCMovNZ:   {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindCMovE:    {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindCMovL:    {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindCMovB:    {dstIsDef: true, dstIsUse: true, srcIsUse: true},
	KindDiv:      {srcIsUse: true},
	KindIDiv:     {srcIsUse: true},
}

// IsFoldableMov reports whether this is a register-to-register MovRR whose
// source's live range ends exactly here and whose destination's live
// range begins exactly here and is never itself fixed -- such a move can
// be elided entirely by reassigning the destination vreg's physical
// register instead of emitting real code. Grounded on
// X86CodeGen::is_foldable_mov.
func (i *Inst) IsFoldableMov(vregs *regalloc.VRegTable) (src, dst Reg, ok bool) {
	if i.Kind != KindMovRR || i.Src.Kind != OperandReg || i.Dst.Kind != OperandReg {
		return Reg{}, Reg{}, false
	}
	src, dst = i.Src.Reg, i.Dst.Reg
	if !src.IsVirtual() || !dst.IsVirtual() {
		return Reg{}, Reg{}, false
	}
	srcInfo, dstInfo := vregs.Info(src), vregs.Info(dst)
	if srcInfo.CurrentReg.IsPhysical() && srcInfo.Interval.Max == i.name &&
		dstInfo.Interval.Min == i.name && dstInfo.Fixed.IsInvalid() {
		return src, dst, true
	}
	return Reg{}, Reg{}, false
}

// String renders one instruction for disassembly/debugging.
func (i *Inst) String() string {
	s := kindNames[i.Kind]
	if i.Dst.Kind != OperandNone {
		s += " " + operandString(i.Dst, i.Width == 1)
	}
	if i.Src.Kind != OperandNone {
		s += ", " + operandString(i.Src, i.Width == 1)
	}
	if i.Block != nil {
		s += " " + i.Block.Name
	}
	return s
}

func operandString(o Operand, bits8 bool) string {
	switch o.Kind {
	case OperandReg:
		return physName(o.Reg, bits8)
	case OperandMem:
		return o.Mem.String()
	case OperandImm:
		return fmt.Sprintf("$%d", int64(o.Imm))
	default:
		return ""
	}
}

func (m Mem) String() string {
	s := "[" + physName(m.Base, false)
	if m.Scale != 0 {
		s += fmt.Sprintf("+%s*%d", physName(m.Index, false), m.Scale)
	}
	if m.Disp != 0 {
		s += fmt.Sprintf("+%d", m.Disp)
	}
	return s + "]"
}

var kindNames = map[Kind]string{
	KindMovRR: "mov", KindMovRI: "mov", KindMovRI64: "movabs", KindMovStore: "mov",
	KindMovZX: "movzx", KindMovSX: "movsx", KindLea: "lea",
	KindAdd: "add", KindSub: "sub", KindIMul: "imul", KindDiv: "div", KindIDiv: "idiv",
	KindAnd: "and", KindOr: "or", KindXor: "xor",
	KindShl: "shl", KindShr: "shr", KindSar: "sar",
	KindCmp: "cmp", KindTest: "test",
	KindSetE: "sete", KindSetL: "setl", KindSetB: "setb",
	KindCMovNZ: "cmovnz", KindCMovE: "cmove", KindCMovL: "cmovl", KindCMovB: "cmovb",
	KindJmp: "jmp", KindJNE: "jne", KindJE: "je", KindJL: "jl", KindJB: "jb", KindRet: "ret",
}
