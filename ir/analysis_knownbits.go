package ir

// KnownBitsValue is a per-Value abstract lattice element: for each bit
// position, either "known 0", "known 1", or unknown. mask has a 1 bit for
// every known position; value holds the known bits' actual contents (bits
// outside mask are meaningless). Grounded on
// original_source/jitir.tmpl.hpp's KnownBits::Bits.
type KnownBitsValue struct {
	Typ   Type
	Mask  uint64
	Value uint64
}

func knownBits(typ Type, mask, value uint64) KnownBitsValue {
	m := typ.Mask()
	return KnownBitsValue{Typ: typ, Mask: mask & m, Value: value & m}
}

func knownConst(typ Type, value uint64) KnownBitsValue {
	return knownBits(typ, typ.Mask(), value)
}

// IsConst reports whether every bit of this value is known.
func (b KnownBitsValue) IsConst() bool { return b.Mask == b.Typ.Mask() }

// At returns the known value of bit, and whether it is known at all.
func (b KnownBitsValue) At(bit uint) (bool, bool) {
	if b.Mask&(uint64(1)<<bit) == 0 {
		return false, false
	}
	return b.Value&(uint64(1)<<bit) != 0, true
}

func (b KnownBitsValue) binConst(typ Type, other KnownBitsValue, fn func(a, c uint64) uint64) KnownBitsValue {
	if b.IsConst() && other.IsConst() {
		return knownConst(typ, fn(b.Value, other.Value))
	}
	return knownBits(typ, 0, 0)
}

func (b KnownBitsValue) and(other KnownBitsValue) KnownBitsValue {
	return knownBits(b.Typ,
		(b.Mask&other.Mask)|(b.Mask&^b.Value)|(other.Mask&^other.Value),
		b.Value&other.Value)
}

func (b KnownBitsValue) or(other KnownBitsValue) KnownBitsValue {
	return knownBits(b.Typ,
		(b.Mask&other.Mask)|(b.Mask&b.Value)|(other.Mask&other.Value),
		b.Value|other.Value)
}

func (b KnownBitsValue) xor(other KnownBitsValue) KnownBitsValue {
	return knownBits(b.Typ, b.Mask&other.Mask, b.Value^other.Value)
}

func (b KnownBitsValue) eq(other KnownBitsValue) KnownBitsValue {
	if (b.Mask & other.Mask & b.Value) != (b.Mask & other.Mask & other.Value) {
		return knownConst(TypeBool, 0)
	} else if b.IsConst() && other.IsConst() {
		return knownConst(TypeBool, boolU64(b.Value == other.Value))
	}
	return knownBits(TypeBool, 0, 0)
}

func (b KnownBitsValue) shl(shift uint64) KnownBitsValue {
	if shift >= 64 {
		return knownConst(b.Typ, 0)
	}
	lowOnes := (uint64(1) << shift) - 1
	return knownBits(b.Typ, (b.Mask<<shift)|lowOnes, b.Value<<shift)
}

func (b KnownBitsValue) shrU(shift uint64) KnownBitsValue {
	typeMask := b.Typ.Mask()
	highKnownZero := typeMask &^ (typeMask >> shift)
	return knownBits(b.Typ, (b.Mask>>shift)|highKnownZero, b.Value>>shift)
}

func (b KnownBitsValue) shrS(shift uint64) KnownBitsValue {
	result := knownBits(b.Typ, b.Mask>>shift, b.Value>>shift)
	if sign, ok := b.At(uint(b.Typ.BitWidth() - 1)); ok {
		typeMask := b.Typ.Mask()
		upper := typeMask &^ (typeMask >> shift)
		result.Mask |= upper
		if sign {
			result.Value |= upper
		} else {
			result.Value &^= upper
		}
	}
	return result
}

func (b KnownBitsValue) resizeU(to Type) KnownBitsValue {
	fm, tm := b.Typ.Mask(), to.Mask()
	return knownBits(to, (b.Mask&fm&tm)|(tm&^fm), b.Value&fm&tm)
}

func (b KnownBitsValue) resizeS(to Type) KnownBitsValue {
	fm, tm := b.Typ.Mask(), to.Mask()
	result := knownBits(to, b.Mask&fm&tm, b.Value&fm&tm)
	if sign, ok := b.At(uint(b.Typ.BitWidth() - 1)); ok {
		upper := tm &^ fm
		result.Mask |= upper
		if sign {
			result.Value |= upper
		} else {
			result.Value &^= upper
		}
	}
	return result
}

func (b KnownBitsValue) resizeX(to Type) KnownBitsValue {
	fm, tm := b.Typ.Mask(), to.Mask()
	return knownBits(to, b.Mask&fm&tm, b.Value)
}

func (b KnownBitsValue) selectBits(t, f KnownBitsValue) KnownBitsValue {
	if b.IsConst() {
		if b.Value != 0 {
			return t
		}
		return f
	}
	return knownBits(t.Typ, t.Mask&f.Mask&^(t.Value^f.Value), t.Value)
}

// KnownBits computes, for every Value in sec, which bits are known constant
// regardless of runtime input -- used by Simplify to fold instructions
// whose result is fully determined even though its operands aren't all
// literal constants (e.g. `and(x, 0)`, or a select whose branches agree on
// every known bit). Grounded on
// original_source/jitir.tmpl.hpp's KnownBits class.
type KnownBits struct {
	ctx    *Context
	values []KnownBitsValue // indexed by ValueID.
}

// ComputeKnownBits runs the analysis over every block of sec, in layout
// order (a single forward pass suffices: this IR has no value whose
// definition occurs after a use, since it is already in SSA/block-argument
// form).
func ComputeKnownBits(sec *Section) *KnownBits {
	kb := &KnownBits{ctx: sec.Context(), values: make([]KnownBitsValue, sec.NameCount())}
	for _, blk := range sec.Blocks() {
		for i := 0; i < blk.Params(); i++ {
			p := blk.Param(i)
			kb.values[p.ID()] = knownBits(p.Type(), 0, 0)
		}
		for inst := blk.Root(); inst != nil; inst = inst.Next() {
			if !inst.Result().Valid() {
				continue
			}
			kb.values[inst.Result().ID()] = kb.eval(inst)
		}
	}
	return kb
}

// At returns the known-bits lattice element for v, resolving literal
// constants directly rather than through the per-Section table.
func (kb *KnownBits) At(v Value) KnownBitsValue {
	if v.IsConst() {
		return knownConst(v.Type(), kb.ctx.ConstValue(v))
	}
	return kb.values[v.ID()]
}

func (kb *KnownBits) eval(inst *Instruction) KnownBitsValue {
	return EvalInst(inst, kb.At)
}

// EvalInst applies one instruction's known-bits transfer function using at
// to resolve each operand, independent of any particular KnownBits table --
// the same transfer functions drive both the whole-Section KnownBits
// analysis (via (*KnownBits).At) and interp.Interpreter's concrete
// evaluation (every operand is fully known at runtime, so IsConst() is
// always true there). Grounded on
// original_source/jitir.tmpl.hpp's KnownBits::Bits::eval, which the
// original's own Interpreter::step reuses for exactly this reason.
func EvalInst(inst *Instruction, at func(Value) KnownBitsValue) KnownBitsValue {
	switch inst.opcode {
	case OpFreeze, OpAssumeConst:
		return at(inst.v1)
	case OpSelect:
		return at(inst.v1).selectBits(at(inst.v2), at(inst.v3))
	case OpResizeU:
		return at(inst.v1).resizeU(inst.typ)
	case OpResizeS:
		return at(inst.v1).resizeS(inst.typ)
	case OpResizeX:
		return at(inst.v1).resizeX(inst.typ)
	case OpAddPtr, OpAdd:
		return at(inst.v1).binConst(inst.typ, at(inst.v2), func(a, b uint64) uint64 { return a + b })
	case OpSub:
		return at(inst.v1).binConst(inst.typ, at(inst.v2), func(a, b uint64) uint64 { return a - b })
	case OpMul:
		return at(inst.v1).binConst(inst.typ, at(inst.v2), func(a, b uint64) uint64 { return a * b })
	case OpDivU:
		return at(inst.v1).binConst(inst.typ, at(inst.v2), func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return a / b
		})
	case OpDivS:
		return at(inst.v1).binConst(inst.typ, at(inst.v2), func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return uint64(signExtend(a, inst.v1.Type()) / signExtend(b, inst.v1.Type()))
		})
	case OpModU:
		return at(inst.v1).binConst(inst.typ, at(inst.v2), func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return a % b
		})
	case OpModS:
		return at(inst.v1).binConst(inst.typ, at(inst.v2), func(a, b uint64) uint64 {
			if b == 0 {
				return 0
			}
			return uint64(signExtend(a, inst.v1.Type()) % signExtend(b, inst.v1.Type()))
		})
	case OpAnd:
		return at(inst.v1).and(at(inst.v2))
	case OpOr:
		return at(inst.v1).or(at(inst.v2))
	case OpXor:
		return at(inst.v1).xor(at(inst.v2))
	case OpShl:
		if s := at(inst.v2); s.IsConst() {
			return at(inst.v1).shl(s.Value)
		}
		return knownBits(inst.typ, 0, 0)
	case OpShrU:
		if s := at(inst.v2); s.IsConst() {
			return at(inst.v1).shrU(s.Value)
		}
		return knownBits(inst.typ, 0, 0)
	case OpShrS:
		if s := at(inst.v2); s.IsConst() {
			return at(inst.v1).shrS(s.Value)
		}
		return knownBits(inst.typ, 0, 0)
	case OpEq:
		return at(inst.v1).eq(at(inst.v2))
	case OpLtU:
		a, b := at(inst.v1), at(inst.v2)
		if a.IsConst() && b.IsConst() {
			return knownConst(TypeBool, boolU64(a.Value < b.Value))
		}
		return knownBits(TypeBool, 0, 0)
	case OpLtS:
		a, b := at(inst.v1), at(inst.v2)
		if a.IsConst() && b.IsConst() {
			return knownConst(TypeBool, boolU64(signExtend(a.Value, inst.v1.Type()) < signExtend(b.Value, inst.v1.Type())))
		}
		return knownBits(TypeBool, 0, 0)
	default:
		return knownBits(inst.typ, 0, 0)
	}
}

// NewConst returns a fully-known KnownBitsValue, exported for callers
// outside this package (interp.Interpreter) that need to seed concrete
// runtime values using the same representation this analysis uses.
func NewConst(typ Type, value uint64) KnownBitsValue { return knownConst(typ, value) }

func signExtend(v uint64, typ Type) int64 {
	shift := 64 - typ.BitWidth()
	return int64(v<<shift) >> shift
}
