package amd64

// This file turns a *Func already through Allocate (every Reg physical) into
// a flat byte slice: REX prefix, opcode, ModRM/SIB, displacement, and
// immediate, one instruction at a time, followed by a second pass that
// patches every branch's rel32 now that every block's final offset is
// known. Grounded throughout on original_source/x86gen.hpp's
// X86CodeGen::emit(X86Inst*, buffer, labels) and its rex/rex_w/rex_opt/
// modrm/imm_n closures, and on x86insts.inc.hpp's per-Kind opcode table --
// see encodeInst's cases for the opcode byte(s) each Kind came from.
//
// Canonicalization invariant this encoder relies on (established by isel.go
// and documented on movInto): every register-resident value, however
// narrow its logical type, is zero/sign-extended across its whole physical
// register. That lets ALU/Cmp/Test encoding ignore Width entirely and
// always use the 64-bit form -- matching x86insts.inc.hpp's own table,
// which in fact only defines 64-bit forms for every ALU/Test/CMov
// instruction (only Mov and Cmp have narrower variants, used here for
// memory access width, not register width).
type label struct {
	pos, size, ref int
	to             *Block
}

type encoder struct {
	buf    []byte
	labels []label
}

func (e *encoder) u8(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) u32(v uint32) {
	e.u8(byte(v))
	e.u8(byte(v >> 8))
	e.u8(byte(v >> 16))
	e.u8(byte(v >> 24))
}

// rex emits a REX prefix for a reg/rm pair, set to operand size 64 bits iff
// w. Grounded on X86CodeGen::emit's rex closure.
func (e *encoder) rex(w bool, regID int, rm Operand) {
	b := byte(0x40)
	if w {
		b |= 0x08
	}
	b |= byte((regID>>3)&1) << 2 // R
	switch rm.Kind {
	case OperandReg:
		b |= byte((rm.Reg.ID() >> 3) & 1) // B
	case OperandMem:
		b |= byte((rm.Mem.Base.ID() >> 3) & 1) // B
		if !rm.Mem.Index.IsInvalid() {
			b |= byte((rm.Mem.Index.ID()>>3)&1) << 1 // X
		}
	}
	e.u8(b)
}

func (e *encoder) rexW(regID int, rm Operand) { e.rex(true, regID, rm) }

// rexOpt emits a REX prefix only if one of the referenced registers is R8+,
// matching X86Inst::emit's rex_opt closure -- used for the few opcodes
// (32-bit Mov/Cmp forms) that are otherwise REX-free.
func (e *encoder) rexOpt(regID int, rm Operand) {
	need := regID >= 8
	switch rm.Kind {
	case OperandReg:
		need = need || rm.Reg.ID() >= 8
	case OperandMem:
		need = need || rm.Mem.Base.ID() >= 8 || (!rm.Mem.Index.IsInvalid() && rm.Mem.Index.ID() >= 8)
	}
	if need {
		e.rex(false, regID, rm)
	}
}

// modrm emits the ModRM byte (and, for a memory operand, the SIB byte and
// displacement) for regID/rm. Grounded on X86CodeGen::emit's modrm closure,
// including its disp8-vs-disp32 and "base==RBP/R13 always needs a
// displacement byte" special cases (mod rm r/m==101 is the RIP-relative
// escape when mod==00, so a zero-displacement access to RBP/R13 must be
// forced to mod==01 with an explicit zero byte).
func (e *encoder) modrm(regID int, rm Operand) {
	switch rm.Kind {
	case OperandReg:
		e.u8(byte(regID&7)<<3 | 0b11<<6 | byte(rm.Reg.ID()&7))
	case OperandMem:
		mem := rm.Mem
		baseLow := byte(mem.Base.ID() & 7)

		var mod byte
		switch {
		case mem.Disp == 0 && baseLow != 0b101:
			mod = 0b00
		case mem.Disp >= -128 && mem.Disp <= 127:
			mod = 0b01
		default:
			mod = 0b10
		}
		m := byte(regID&7)<<3 | mod<<6

		if mem.Scale == 0 && baseLow != 0b100 {
			e.u8(m | baseLow)
		} else {
			e.u8(m | 0b100)
			var scale byte
			switch mem.Scale {
			case 0:
				scale = 0
			case 1:
				scale = 0b00
			case 2:
				scale = 0b01
			case 4:
				scale = 0b10
			case 8:
				scale = 0b11
			default:
				panic("BUG: invalid SIB scale")
			}
			index := byte(0b100)
			if mem.Scale != 0 && !mem.Index.IsInvalid() {
				index = byte(mem.Index.ID() & 7)
			}
			e.u8(scale<<6 | index<<3 | baseLow)
		}

		if mem.Disp != 0 || baseLow == 0b101 {
			if mem.Disp >= -128 && mem.Disp <= 127 {
				e.u8(byte(mem.Disp))
			} else {
				e.u32(uint32(mem.Disp))
			}
		}
	default:
		panic("BUG: incomplete ModRM: operand carries no register or memory form")
	}
}

// immN appends an n-byte little-endian immediate. If to is non-nil, the
// bytes are a placeholder patched by Encode's second pass once block
// offsets are known, matching X86CodeGen::emit's Label bookkeeping.
func (e *encoder) immN(n int, val uint64, to *Block) {
	if to != nil {
		e.labels = append(e.labels, label{pos: len(e.buf), size: n, ref: len(e.buf) + n, to: to})
	}
	for i := 0; i < n; i++ {
		e.u8(byte(val >> (8 * uint(i))))
	}
}

func regID(op Operand) int {
	if op.Kind != OperandReg {
		panic("BUG: expected a register operand")
	}
	return int(op.Reg.ID())
}

// encodeInst appends inst's machine code to e. Every Reg operand must
// already be physical -- call only after Allocate.
func (e *encoder) encodeInst(inst *Inst) {
	switch inst.Kind {
	case KindMovRR:
		reg, rm := regID(inst.Dst), inst.Src
		switch inst.Width {
		case 1:
			e.rex(false, reg, rm)
			e.u8(0x8a)
		case 2, 4:
			e.rexOpt(reg, rm)
			e.u8(0x8b)
		case 8:
			e.rexW(reg, rm)
			e.u8(0x8b)
		default:
			panic("BUG: invalid operand width")
		}
		e.modrm(reg, rm)

	case KindMovZX:
		reg, rm := regID(inst.Dst), inst.Src
		switch inst.Width {
		case 1:
			e.rexOpt(reg, rm)
			e.u8(0x0f)
			e.u8(0xb6)
		case 2:
			e.rexOpt(reg, rm)
			e.u8(0x0f)
			e.u8(0xb7)
		case 4:
			// A plain 32-bit load/mov already zero-extends the upper
			// 32 bits of the destination register; no movzx opcode
			// exists for this width.
			e.rexOpt(reg, rm)
			e.u8(0x8b)
		case 8:
			e.rexW(reg, rm)
			e.u8(0x8b)
		default:
			panic("BUG: invalid operand width")
		}
		e.modrm(reg, rm)

	case KindMovSX:
		reg, rm := regID(inst.Dst), inst.Src
		switch inst.Width {
		case 1:
			e.rexW(reg, rm)
			e.u8(0x0f)
			e.u8(0xbe)
		case 2:
			e.rexW(reg, rm)
			e.u8(0x0f)
			e.u8(0xbf)
		case 4:
			e.rexW(reg, rm)
			e.u8(0x63) // movsxd
		case 8:
			e.rexW(reg, rm)
			e.u8(0x8b)
		default:
			panic("BUG: invalid operand width")
		}
		e.modrm(reg, rm)

	case KindMovStore:
		reg, rm := regID(inst.Src), inst.Dst
		switch inst.Width {
		case 1:
			e.rex(false, reg, rm)
			e.u8(0x88)
		case 2, 4:
			e.rexOpt(reg, rm)
			e.u8(0x89)
		case 8:
			e.rexW(reg, rm)
			e.u8(0x89)
		default:
			panic("BUG: invalid operand width")
		}
		e.modrm(reg, rm)

	case KindMovRI:
		rm := inst.Dst
		e.rexW(0, rm)
		e.u8(0xc7)
		e.modrm(0, rm)
		e.immN(4, inst.Src.Imm, nil)

	case KindMovRI64:
		reg := regID(inst.Dst)
		e.rexW(reg, NoOperand())
		e.u8(0xb8 + byte(reg&7))
		e.immN(8, inst.Src.Imm, nil)

	case KindLea:
		reg, rm := regID(inst.Dst), inst.Src
		e.rexW(reg, rm)
		e.u8(0x8d)
		e.modrm(reg, rm)

	case KindAdd:
		e.aluRM(0x03, inst)
	case KindSub:
		e.aluRM(0x2b, inst)
	case KindAnd:
		e.aluRM(0x23, inst)
	case KindOr:
		e.aluRM(0x0b, inst)
	case KindXor:
		e.aluRM(0x31, inst)

	case KindIMul:
		reg, rm := regID(inst.Dst), inst.Src
		e.rexW(reg, rm)
		e.u8(0x0f)
		e.u8(0xaf)
		e.modrm(reg, rm)

	case KindDiv:
		rm := inst.Src
		e.rexW(6, rm)
		e.u8(0xf7)
		e.modrm(6, rm)
	case KindIDiv:
		rm := inst.Src
		e.rexW(7, rm)
		e.u8(0xf7)
		e.modrm(7, rm)

	case KindShl:
		e.shift(4, inst)
	case KindShr:
		e.shift(5, inst)
	case KindSar:
		e.shift(7, inst)

	case KindCmp:
		reg, rm := regID(inst.Dst), inst.Src
		switch inst.Width {
		case 1:
			e.rex(false, reg, rm)
			e.u8(0x38)
		case 2, 4:
			e.rexOpt(reg, rm)
			e.u8(0x39)
		case 8:
			e.rexW(reg, rm)
			e.u8(0x39)
		default:
			panic("BUG: invalid operand width")
		}
		e.modrm(reg, rm)

	case KindTest:
		// Booleans are always canonicalized to a clean full register (see
		// movInto), so the 64-bit reg/reg form alone suffices.
		reg, rm := regID(inst.Dst), inst.Src
		e.rexW(reg, rm)
		e.u8(0x85)
		e.modrm(reg, rm)

	case KindSetE:
		e.setcc(0x94, inst)
	case KindSetL:
		e.setcc(0x9c, inst)
	case KindSetB:
		e.setcc(0x92, inst)

	case KindCMovNZ:
		e.cmov(0x45, inst)
	case KindCMovE:
		e.cmov(0x44, inst)
	case KindCMovL:
		e.cmov(0x4c, inst)
	case KindCMovB:
		e.cmov(0x42, inst)

	case KindJmp:
		e.u8(0xe9)
		e.immN(4, 0, inst.Block)
	case KindJNE:
		e.u8(0x0f)
		e.u8(0x85)
		e.immN(4, 0, inst.Block)
	case KindJE:
		e.u8(0x0f)
		e.u8(0x84)
		e.immN(4, 0, inst.Block)
	case KindJL:
		e.u8(0x0f)
		e.u8(0x8c)
		e.immN(4, 0, inst.Block)
	case KindJB:
		e.u8(0x0f)
		e.u8(0x82)
		e.immN(4, 0, inst.Block)

	case KindRet:
		e.u8(0xc3)

	default:
		panic("BUG: unhandled instruction kind in encoder")
	}
}

// aluRM encodes one of the read-modify-write 64-bit-only ALU forms (Add,
// Sub, And, Or, Xor): reg is both an input and the output, rm is the other
// input. Grounded on binop_usedef's {use(reg); use(rm); def(reg)} shape.
func (e *encoder) aluRM(opcode byte, inst *Inst) {
	reg, rm := regID(inst.Dst), inst.Src
	e.rexW(reg, rm)
	e.u8(opcode)
	e.modrm(reg, rm)
}

// shift encodes Shl/Shr/Sar: digit is the ModRM opcode-extension for this
// shift direction (4/5/7, per x86insts.inc.hpp's Shl64/Shr64/Sar64 entries).
// An immediate count uses opcode 0xc1 with a 1-byte immediate; a variable
// count uses opcode 0xd3, which shifts by CL implicitly -- the allocator
// having pinned the count to RCX in isel.go is what makes that implicit
// reference correct, so the count register itself is never part of the
// ModRM/SIB encoding.
func (e *encoder) shift(digit int, inst *Inst) {
	rm := inst.Dst
	if inst.Src.Kind == OperandImm {
		e.rexW(digit, rm)
		e.u8(0xc1)
		e.modrm(digit, rm)
		e.immN(1, inst.Src.Imm, nil)
		return
	}
	e.rexW(digit, rm)
	e.u8(0xd3)
	e.modrm(digit, rm)
}

// setcc encodes SetE8/SetL8/SetB8: the ModRM reg field is unused by the
// real instruction (it is conventionally zero), matching
// x86insts.inc.hpp's entries, which never assign inst->reg() for these.
func (e *encoder) setcc(opcode byte, inst *Inst) {
	rm := inst.Dst
	e.rex(false, 0, rm)
	e.u8(0x0f)
	e.u8(opcode)
	e.modrm(0, rm)
}

func (e *encoder) cmov(opcode byte, inst *Inst) {
	reg, rm := regID(inst.Dst), inst.Src
	e.rexW(reg, rm)
	e.u8(0x0f)
	e.u8(opcode)
	e.modrm(reg, rm)
}

// Encode lowers f (already through Allocate) into machine code, resolving
// every branch target to a rel32 once every block's offset is known.
// Grounded on X86CodeGen::emit(buffer).
func Encode(f *Func) []byte {
	e := &encoder{}
	offsets := make(map[*Block]int, len(f.Blocks))
	for _, blk := range f.Blocks {
		offsets[blk] = len(e.buf)
		for _, inst := range blk.Insts {
			e.encodeInst(inst)
		}
	}
	for _, lbl := range e.labels {
		value := int64(offsets[lbl.to]) - int64(lbl.ref)
		for i := 0; i < lbl.size; i++ {
			e.buf[lbl.pos+i] = byte(value >> (8 * uint(i)))
		}
	}
	return e.buf
}
