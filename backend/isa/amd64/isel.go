package amd64

import (
	"math"

	"github.com/mjit-project/mjit/backend/regalloc"
	"github.com/mjit-project/mjit/ir"
)

// selector holds the state threaded through one Select pass: the vreg
// table being built up, and the mapping from every named ir.Value this
// Section defines to the vreg that holds it. Grounded on the per-Section
// state X86CodeGen::isel keeps in its own fields (_vreg_info, the
// Value*->Reg map built lazily by X86CodeGen::vreg(Value*)).
type selector struct {
	sec    *ir.Section
	f      *Func
	blocks map[*ir.Block]*Block
	value  map[ir.Value]Reg
}

// Select lowers every block of sec into this package's pre-allocation
// instruction form: one amd64.Block per ir.Block, in the same order,
// operands still naming virtual registers. Grounded on
// X86CodeGen::isel() driving X86CodeGen::isel(Inst*) over every
// instruction of every block.
func Select(sec *ir.Section) *Func {
	s := &selector{
		sec:    sec,
		f:      &Func{},
		blocks: make(map[*ir.Block]*Block),
		value:  make(map[ir.Value]Reg),
	}

	for _, blk := range sec.Blocks() {
		b := &Block{Name: blk.Name()}
		s.blocks[blk] = b
		s.f.Blocks = append(s.f.Blocks, b)
	}
	for idx, blk := range sec.Blocks() {
		s.wireSuccs(blk, s.f.Blocks[idx])
	}

	entry := sec.Entry()
	if entry.Params() > len(entryArgRegs) {
		panic("BUG: more entry parameters than this port's fixed-register contract supports")
	}
	for i := 0; i < entry.Params(); i++ {
		r := s.f.VRegs.NewFixed(regalloc.Phys(uint32(entryArgRegs[i])))
		s.value[entry.Param(i)] = r
		s.f.EntryArgs = append(s.f.EntryArgs, r)
	}
	for _, blk := range sec.Blocks() {
		if blk.EntryBlock() {
			continue
		}
		for i := 0; i < blk.Params(); i++ {
			s.value[blk.Param(i)] = s.f.VRegs.New()
		}
	}

	for _, blk := range sec.Blocks() {
		s.selectBlock(blk, s.blocks[blk])
	}

	autoname(s.f)
	return s.f
}

func (s *selector) wireSuccs(blk *ir.Block, b *Block) {
	for _, succ := range blk.Succs() {
		sb := s.blocks[succ]
		b.succs = append(b.succs, sb)
		sb.preds = append(sb.preds, b)
	}
}

func (b *Block) emit(i *Inst) *Inst {
	b.Insts = append(b.Insts, i)
	return i
}

// vregFor returns the vreg already bound to v (a block parameter) or
// lazily allocates one (an instruction result referenced before its
// defining instruction is reached -- never happens in this IR's
// single-pass, definitions-before-uses layout, but vregFor stays total
// rather than panicking on the untested path).
func (s *selector) vregFor(v ir.Value) Reg {
	if r, ok := s.value[v]; ok {
		return r
	}
	r := s.f.VRegs.New()
	s.value[v] = r
	return r
}

func fitsImm32(val uint64) bool {
	return val <= uint64(math.MaxInt32) || val >= uint64(math.MaxUint64-uint64(math.MaxInt32))
}

// readOperand resolves an ir.Value into an Operand usable as an ALU
// source: a small constant becomes an immediate directly; anything else
// (a large constant included) becomes a register, materializing large
// constants via a 64-bit immediate move first. Grounded on
// X86CodeGen::is_sext_imm32 guarding which constants may be encoded
// in-line versus needing X86CodeGen::vreg(Const*)'s mov64_imm64 path --
// simplified conservatively here (see DESIGN.md) since this IR's Type
// does not distinguish signed and unsigned integers the way the
// original's sign-extension check assumes.
func (s *selector) readOperand(blk *Block, v ir.Value) Operand {
	if v.IsConst() {
		val := s.sec.Context().ConstValue(v)
		if fitsImm32(val) {
			return ImmOperand(val)
		}
		r := s.f.VRegs.New()
		blk.emit(&Inst{Kind: KindMovRI64, Width: 8, Dst: RegOperand(r), Src: ImmOperand(val)})
		return RegOperand(r)
	}
	return RegOperand(s.vregFor(v))
}

// readReg is like readOperand but always materializes a register,
// forcing a constant through a Mov first -- used wherever the target
// instruction form has no immediate variant (Div, Lea's index, CMov).
func (s *selector) readReg(blk *Block, v ir.Value) Reg {
	op := s.readOperand(blk, v)
	if op.Kind == OperandReg {
		return op.Reg
	}
	r := s.f.VRegs.New()
	blk.emit(movInto(RegOperand(r), op, v.Type().Size()))
	return r
}

// movInto builds whichever Mov* Kind fits src and canonicalizes the result
// into a full, cleanly-extended 64-bit register: every vreg this backend
// produces holds its logical value zero/sign-extended across the whole
// physical register, never garbage above bit Width*8, so that a later
// Test/Cmp/arithmetic op never needs to know the original narrower type.
// KindMovRI always goes through the sign-extending 64-bit immediate form
// regardless of width (real x86-64 "mov r64, imm32" instruction, the same
// one x86insts.inc.hpp's Mov64Imm entry uses) instead of the narrower
// 8/16-bit immediate forms that leave the upper bits of the destination
// untouched. A register/memory source narrower than 8 bytes always widens
// via KindMovZX, for the same reason.
func movInto(dst, src Operand, width byte) *Inst {
	switch src.Kind {
	case OperandImm:
		if fitsImm32(src.Imm) {
			return &Inst{Kind: KindMovRI, Width: 8, Dst: dst, Src: src}
		}
		return &Inst{Kind: KindMovRI64, Width: 8, Dst: dst, Src: src}
	default:
		if width < 8 {
			return &Inst{Kind: KindMovZX, Width: width, Dst: dst, Src: src}
		}
		return &Inst{Kind: KindMovRR, Width: width, Dst: dst, Src: src}
	}
}

func (s *selector) defReg(v ir.Value) Reg {
	r := s.f.VRegs.New()
	s.value[v] = r
	return r
}

// selectBlock lowers every instruction of blk in program order into b,
// the same traversal direction original_source's build_add/build_cmp/isel
// helpers assume (the original's own isel() walks in reverse for
// peephole-matching reasons this port doesn't replicate).
func (s *selector) selectBlock(blk *ir.Block, b *Block) {
	for inst := blk.Root(); inst != nil; inst = inst.Next() {
		s.selectInst(blk, b, inst)
	}
}

func (s *selector) selectInst(irBlk *ir.Block, b *Block, inst *ir.Instruction) {
	width := inst.Type().Size()
	switch inst.Opcode() {
	case ir.OpAdd, ir.OpAnd, ir.OpOr, ir.OpXor:
		s.selectCommutativeALU(b, inst, aluKind(inst.Opcode()), width)
	case ir.OpSub:
		s.selectALU(b, inst, KindSub, width)
	case ir.OpMul:
		s.selectMul(b, inst, width)
	case ir.OpDivU, ir.OpModU:
		s.selectDivMod(b, inst, KindDiv, inst.Opcode() == ir.OpModU, width)
	case ir.OpDivS, ir.OpModS:
		s.selectDivMod(b, inst, KindIDiv, inst.Opcode() == ir.OpModS, width)
	case ir.OpShl:
		s.selectShift(b, inst, KindShl, width)
	case ir.OpShrU:
		s.selectShift(b, inst, KindShr, width)
	case ir.OpShrS:
		s.selectShift(b, inst, KindSar, width)
	case ir.OpEq:
		s.selectCompare(b, inst, KindSetE)
	case ir.OpLtU:
		s.selectCompare(b, inst, KindSetB)
	case ir.OpLtS:
		s.selectCompare(b, inst, KindSetL)
	case ir.OpResizeU:
		s.selectResize(b, inst, KindMovZX)
	case ir.OpResizeS:
		s.selectResize(b, inst, KindMovSX)
	case ir.OpResizeX, ir.OpFreeze, ir.OpAssumeConst:
		// Bit-preserving pass-through: alias the result to the operand's
		// vreg instead of emitting a real move. Grounded on the same
		// "coalesce, don't copy" idea ChainLoopMem2Reg's substs map uses
		// at the IR level.
		s.value[inst.Result()] = s.readReg(b, inst.Arg())
	case ir.OpAddPtr:
		s.selectAddPtr(b, inst)
	case ir.OpLoad:
		s.selectLoad(b, inst)
	case ir.OpStore:
		s.selectStore(b, inst)
	case ir.OpSelect:
		s.selectSelect(b, inst)
	case ir.OpJump:
		s.selectJump(irBlk, b, inst)
	case ir.OpBranch:
		s.selectBranch(b, inst)
	case ir.OpExit:
		b.emit(&Inst{Kind: KindRet})
	case ir.OpComment:
		// No machine-code representation; comments are a textual/debug
		// artifact only.
	case ir.OpInput, ir.OpOutput:
		panic("BUG: OpInput/OpOutput have no machine-code lowering; only interp.Interpreter evaluates them")
	default:
		panic("BUG: unhandled opcode in instruction selection: " + inst.Opcode().String())
	}
}

func aluKind(op ir.Opcode) Kind {
	switch op {
	case ir.OpAdd:
		return KindAdd
	case ir.OpAnd:
		return KindAnd
	case ir.OpOr:
		return KindOr
	case ir.OpXor:
		return KindXor
	default:
		panic("BUG: not a commutative ALU opcode")
	}
}

// selectCommutativeALU lowers a commutative two-operand op: the folding
// builder already canonicalizes a constant to the second operand
// (spec.md §4.2), so the immediate-eligible side is always arg2.
func (s *selector) selectCommutativeALU(b *Block, inst *ir.Instruction, kind Kind, width byte) {
	a1, a2 := inst.Arg2()
	s.selectALU2(b, inst, kind, a1, a2, width)
}

func (s *selector) selectALU(b *Block, inst *ir.Instruction, kind Kind, width byte) {
	a1, a2 := inst.Arg2()
	s.selectALU2(b, inst, kind, a1, a2, width)
}

func (s *selector) selectALU2(b *Block, inst *ir.Instruction, kind Kind, a1, a2 ir.Value, width byte) {
	dst := s.defReg(inst.Result())
	lhs := s.readReg(b, a1)
	b.emit(movInto(RegOperand(dst), RegOperand(lhs), width))
	rhs := s.readOperand(b, a2)
	b.emit(&Inst{Kind: kind, Width: width, Dst: RegOperand(dst), Src: rhs})
}

func (s *selector) selectMul(b *Block, inst *ir.Instruction, width byte) {
	// IMul64 has no immediate form in x86insts.inc.hpp's table, so both
	// operands are always materialized into registers.
	a1, a2 := inst.Arg2()
	dst := s.defReg(inst.Result())
	lhs := s.readReg(b, a1)
	b.emit(movInto(RegOperand(dst), RegOperand(lhs), width))
	rhs := s.readReg(b, a2)
	b.emit(&Inst{Kind: KindIMul, Width: width, Dst: RegOperand(dst), Src: RegOperand(rhs)})
}

// selectDivMod lowers Div*/Mod* to the RDX:RAX / divisor form: the
// dividend is moved into RAX (sign/zero extended into RDX per the
// signed/unsigned variant), the divisor is always a register (idiv/div
// both forbid immediate operands), and the result comes from RAX
// (quotient) or RDX (remainder). Grounded on x86gen.hpp's div lowering,
// which pins exactly these two physical registers via fix_to_preg.
func (s *selector) selectDivMod(b *Block, inst *ir.Instruction, kind Kind, wantRemainder bool, width byte) {
	a1, a2 := inst.Arg2()
	rax := s.f.VRegs.NewFixed(regalloc.Phys(uint32(RAX)))
	rdx := s.f.VRegs.NewFixed(regalloc.Phys(uint32(RDX)))

	lhs := s.readReg(b, a1)
	b.emit(movInto(RegOperand(rax), RegOperand(lhs), width))
	if kind == KindIDiv {
		// Sign-extend RAX into RDX (cqo-equivalent, modeled here as an
		// arithmetic shift of a copy rather than adding a dedicated Kind
		// for the one-instruction idiom, since this port's Shift lowering
		// already emits the same shape).
		b.emit(movInto(RegOperand(rdx), RegOperand(rax), width))
		b.emit(&Inst{Kind: KindSar, Width: width, Dst: RegOperand(rdx), Src: ImmOperand(uint64(width*8 - 1))})
	} else {
		b.emit(&Inst{Kind: KindXor, Width: width, Dst: RegOperand(rdx), Src: RegOperand(rdx)})
	}

	divisor := s.readReg(b, a2)
	b.emit(&Inst{Kind: kind, Width: width, Src: RegOperand(divisor), Extra: []Reg{rdx, rax}})

	result := rax
	if wantRemainder {
		result = rdx
	}
	dst := s.defReg(inst.Result())
	b.emit(movInto(RegOperand(dst), RegOperand(result), width))
}

func (s *selector) selectShift(b *Block, inst *ir.Instruction, kind Kind, width byte) {
	a1, a2 := inst.Arg2()
	dst := s.defReg(inst.Result())
	lhs := s.readReg(b, a1)
	b.emit(movInto(RegOperand(dst), RegOperand(lhs), width))

	if a2.IsConst() {
		val := s.sec.Context().ConstValue(a2)
		b.emit(&Inst{Kind: kind, Width: width, Dst: RegOperand(dst), Src: ImmOperand(val)})
		return
	}
	count := s.f.VRegs.NewFixed(regalloc.Phys(uint32(RCX)))
	b.emit(movInto(RegOperand(count), RegOperand(s.vregFor(a2)), 1))
	b.emit(&Inst{Kind: kind, Width: width, Dst: RegOperand(dst), Src: RegOperand(count)})
}

func (s *selector) selectCompare(b *Block, inst *ir.Instruction, setKind Kind) {
	a1, a2 := inst.Arg2()
	lhs := s.readReg(b, a1)
	rhs := s.readOperand(b, a2)
	width := a1.Type().Size()
	b.emit(&Inst{Kind: KindCmp, Width: width, Dst: RegOperand(lhs), Src: rhs})
	dst := s.defReg(inst.Result())
	b.emit(&Inst{Kind: setKind, Width: 1, Dst: RegOperand(dst)})
	// SetE/SetL/SetB only ever write the destination's low byte, leaving
	// the rest of the register whatever it held before -- widen
	// immediately so every later Test of this boolean can trust the whole
	// register instead of re-deriving a width-1 view of it.
	b.emit(&Inst{Kind: KindMovZX, Width: 1, Dst: RegOperand(dst), Src: RegOperand(dst)})
}

func (s *selector) selectResize(b *Block, inst *ir.Instruction, kind Kind) {
	src := s.readReg(b, inst.Arg())
	dst := s.defReg(inst.Result())
	b.emit(&Inst{Kind: kind, Width: inst.Arg().Type().Size(), Dst: RegOperand(dst), Src: RegOperand(src)})
}

func (s *selector) selectAddPtr(b *Block, inst *ir.Instruction) {
	ptr, off := inst.Arg2()
	base := s.readReg(b, ptr)
	dst := s.defReg(inst.Result())
	if off.IsConst() {
		val := s.sec.Context().ConstValue(off)
		b.emit(&Inst{Kind: KindLea, Width: 8, Dst: RegOperand(dst), Src: MemOperand(Mem{Base: base, Disp: int32(val)})})
		return
	}
	b.emit(movInto(RegOperand(dst), RegOperand(base), 8))
	rhs := s.readOperand(b, off)
	b.emit(&Inst{Kind: KindAdd, Width: 8, Dst: RegOperand(dst), Src: rhs})
}

func (s *selector) addrOf(b *Block, inst *ir.Instruction, ptr ir.Value) Mem {
	base := s.readReg(b, ptr)
	return Mem{Base: base, Disp: int32(inst.Offset())}
}

func (s *selector) selectLoad(b *Block, inst *ir.Instruction) {
	mem := s.addrOf(b, inst, inst.Arg())
	dst := s.defReg(inst.Result())
	width := inst.Type().Size()
	kind := KindMovRR
	if width < 8 {
		// Loading fewer than 8 bytes must still leave a clean, fully
		// zero-extended register behind (see movInto's doc comment).
		kind = KindMovZX
	}
	b.emit(&Inst{Kind: kind, Width: width, Dst: RegOperand(dst), Src: MemOperand(mem)})
}

func (s *selector) selectStore(b *Block, inst *ir.Instruction) {
	ptr, val := inst.Arg2()
	mem := s.addrOf(b, inst, ptr)
	src := s.readReg(b, val)
	b.emit(&Inst{Kind: KindMovStore, Width: val.Type().Size(), Dst: MemOperand(mem), Src: RegOperand(src)})
}

func (s *selector) selectSelect(b *Block, inst *ir.Instruction) {
	cond, t, f := inst.Arg3()
	condReg := s.readReg(b, cond)
	b.emit(&Inst{Kind: KindTest, Width: 1, Dst: RegOperand(condReg), Src: RegOperand(condReg)})

	width := inst.Type().Size()
	dst := s.defReg(inst.Result())
	elseOp := s.readOperand(b, f)
	b.emit(movInto(RegOperand(dst), elseOp, width))

	thenReg := s.readReg(b, t) // CMov has no immediate form.
	b.emit(&Inst{Kind: KindCMovNZ, Width: width, Dst: RegOperand(dst), Src: RegOperand(thenReg)})
}

// selectJump lowers a Jump, including its block-argument list: every
// argument is first copied into a fresh temporary vreg, then every
// temporary is copied into its target parameter's vreg -- a two-phase
// parallel copy that stays correct even when a jump argument and a
// target parameter happen to land in the same physical register later
// (the classic swap problem). Grounded on x86gen.hpp's
// `Reg copies[jump->block()->args().size()]` staging array.
func (s *selector) selectJump(irBlk *ir.Block, b *Block, inst *ir.Instruction) {
	target := inst.Target()
	args := inst.JumpArgs()

	tmps := make([]Reg, len(args))
	for i, a := range args {
		tmps[i] = s.readReg(b, a)
	}
	for i := 0; i < target.Params(); i++ {
		dst := s.vregFor(target.Param(i))
		width := target.Param(i).Type().Size()
		b.emit(movInto(RegOperand(dst), RegOperand(tmps[i]), width))
	}
	b.emit(&Inst{Kind: KindJmp, Block: s.blocks[target]})
}

func (s *selector) selectBranch(b *Block, inst *ir.Instruction) {
	cond := inst.Arg()
	condReg := s.readReg(b, cond)
	b.emit(&Inst{Kind: KindTest, Width: 1, Dst: RegOperand(condReg), Src: RegOperand(condReg)})
	b.emit(&Inst{Kind: KindJNE, Block: s.blocks[inst.Target()]})
	b.emit(&Inst{Kind: KindJmp, Block: s.blocks[inst.Target2()]})
}

// autoname assigns each Inst a dense, ascending index across the whole
// Func (program order, block by block) -- the "name" IsFoldableMov and
// Interval rely on, grounded on X86CodeGen::autoname_insts.
func autoname(f *Func) {
	n := 0
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			inst.name = n
			n++
		}
	}
}
