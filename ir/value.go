package ir

import (
	"fmt"
	"math"
)

// ValueID is the dense identifier portion of a Value: for Arg/Inst values it
// indexes a Section's name space (assigned in [0, Section.NameCount())); for
// Const values it indexes the owning Context's constant table.
type ValueID uint32

const valueIDInvalid = ValueID(math.MaxUint32)

type valueKind uint8

const (
	valueKindConst valueKind = iota
	valueKindArg
	valueKindInst
)

// Value is a single SSA value: a Const, a block parameter (Arg) or the
// result of an Inst. Grounded on ssa.Value
// (tetratelabs-wazero/internal/engine/wazevo/ssa/vs.go), which packs Type
// into the high bits of a uint64 alongside a dense ID; this type adds a
// 2-bit kind tag so one packed word can distinguish all three value kinds
// spec.md requires, per the REDESIGN FLAGS note on replacing runtime
// downcasts with a single discriminant inspection.
type Value uint64

// ValueInvalid is the sentinel for "no value". It is not the zero Value:
// Value(0) decodes as a Const with ID 0.
const ValueInvalid Value = Value(uint64(3)<<62 | uint64(valueIDInvalid))

func newValue(kind valueKind, typ Type, id ValueID) Value {
	return Value(uint64(kind)<<62 | uint64(typ)<<48 | uint64(id))
}

// Kind reports whether this is a Const, Arg or Inst value.
func (v Value) kind() valueKind { return valueKind(v >> 62) }

// Valid returns false for ValueInvalid and true for every other Value.
func (v Value) Valid() bool { return v != ValueInvalid }

// IsConst reports whether this Value is a compile-time constant.
func (v Value) IsConst() bool { return v.Valid() && v.kind() == valueKindConst }

// IsArg reports whether this Value is a block parameter.
func (v Value) IsArg() bool { return v.Valid() && v.kind() == valueKindArg }

// IsInst reports whether this Value is produced by an instruction.
func (v Value) IsInst() bool { return v.Valid() && v.kind() == valueKindInst }

// IsNamed reports whether this Value participates in a Section's dense name
// space (Arg or Inst, per spec.md's "Named values (Arg and Inst)").
func (v Value) IsNamed() bool { return v.IsArg() || v.IsInst() }

// Type returns the type this Value was constructed with.
func (v Value) Type() Type { return Type((v >> 48) & 0xff) }

// ID returns the ID portion of this Value: a ValueID into the owning
// Section's name space for named values, or a constant-table index for
// Const values. Callers must know which is relevant via Kind.
func (v Value) ID() ValueID { return ValueID(v) }

// String implements fmt.Stringer for debug printing without a Section.
func (v Value) String() string {
	if !v.Valid() {
		return "<invalid>"
	}
	switch v.kind() {
	case valueKindConst:
		return fmt.Sprintf("c%d:%s", v.ID(), v.Type())
	case valueKindArg:
		return fmt.Sprintf("%%%d:%s", v.ID(), v.Type())
	default:
		return fmt.Sprintf("%%%d:%s", v.ID(), v.Type())
	}
}
