package ir

// UsedBitsValue records which bits of a Value are actually consumed by its
// users -- the dual of KnownBits, computed backward. Grounded on
// original_source/jitir.tmpl.hpp's UsedBits::Bits.
type UsedBitsValue struct {
	Typ  Type
	Used uint64
}

func usedAll(typ Type) UsedBitsValue { return UsedBitsValue{Typ: typ, Used: typ.Mask()} }

// UsedBits computes, for every instruction-defined Value, the subset of its
// result bits that any user actually reads -- used by Simplify to drop an
// `and`/`or` mask operand, or collapse a resize, when the discarded bits
// were never going to be observed anyway.
type UsedBits struct {
	values []UsedBitsValue // indexed by ValueID; zero Typ means "unvisited, all Void".
}

// ComputeUsedBits runs the analysis backward over every block of sec.
func ComputeUsedBits(sec *Section) *UsedBits {
	ub := &UsedBits{values: make([]UsedBitsValue, sec.NameCount())}

	use := func(v Value, used uint64) {
		if !v.IsInst() {
			return
		}
		id := v.ID()
		if ub.values[id].Typ == TypeVoid {
			ub.values[id] = UsedBitsValue{Typ: v.Type()}
		}
		ub.values[id].Used |= used & v.Type().Mask()
	}
	useAll := func(v Value) { use(v, v.Type().Mask()) }
	useAllArgs := func(inst *Instruction) { inst.ForEachArg(useAll) }

	blocks := sec.Blocks()
	for bi := len(blocks) - 1; bi >= 0; bi-- {
		blk := blocks[bi]
		insts := blk.Insts()
		for ii := len(insts) - 1; ii >= 0; ii-- {
			inst := insts[ii]
			if inst.Result().Valid() {
				id := inst.Result().ID()
				if ub.values[id].Typ == TypeVoid {
					ub.values[id] = UsedBitsValue{Typ: inst.typ}
				}
			}
			used := UsedBitsValue{}
			if inst.Result().Valid() {
				used = ub.values[inst.Result().ID()]
			}

			switch inst.opcode {
			case OpResizeU, OpResizeX:
				use(inst.v1, used.Used)
			case OpAnd:
				if cv, ok := constOperand(sec, inst.v2); ok {
					use(inst.v1, used.Used&cv)
				} else {
					use(inst.v1, used.Used)
				}
				use(inst.v2, used.Used)
			case OpOr, OpXor:
				use(inst.v1, used.Used)
				use(inst.v2, used.Used)
			case OpSelect:
				if used.Used != 0 {
					useAll(inst.v1)
				}
				use(inst.v2, used.Used)
				use(inst.v3, used.Used)
			case OpAdd, OpSub, OpMul, OpAddPtr:
				spread := used.Used
				for shift := uint(1); shift < 64; shift *= 2 {
					spread |= spread >> shift
				}
				use(inst.v1, spread)
				use(inst.v2, spread)
			case OpShrU, OpShrS:
				if cv, ok := constOperand(sec, inst.v2); ok {
					if cv < uint64(inst.typ.BitWidth()) {
						use(inst.v1, (used.Used<<cv)&inst.typ.Mask())
					} else {
						use(inst.v1, 0)
					}
					useAll(inst.v2)
				} else {
					useAllArgs(inst)
				}
			default:
				if inst.opcode.HasSideEffect() || inst.opcode.IsTerminator() || used.Used != 0 {
					useAllArgs(inst)
				} else {
					inst.ForEachArg(func(v Value) { use(v, 0) })
				}
			}
		}
	}
	return ub
}

func constOperand(sec *Section, v Value) (uint64, bool) {
	if !v.IsConst() {
		return 0, false
	}
	return sec.Context().ConstValue(v), true
}

// At returns the used-bits lattice element for an instruction-defined
// Value.
func (ub *UsedBits) At(v Value) UsedBitsValue {
	if !v.IsInst() {
		panic("BUG: UsedBits.At is only defined for Inst values")
	}
	return ub.values[v.ID()]
}

// Use is a single (consuming instruction, operand index) pair.
type Use struct {
	Inst  *Instruction
	Index int
}

// Uses indexes, for every Value produced by an instruction, every (inst,
// operand index) pair that reads it. Grounded on
// original_source/jitir.tmpl.hpp's Uses class.
type Uses struct {
	uses map[Value][]Use
}

// ComputeUses builds the use-list index for every instruction in sec.
func ComputeUses(sec *Section) *Uses {
	u := &Uses{uses: make(map[Value][]Use)}
	for _, blk := range sec.Blocks() {
		for inst := blk.Root(); inst != nil; inst = inst.Next() {
			for idx, arg := range inst.Args() {
				if arg.IsInst() {
					u.uses[arg] = append(u.uses[arg], Use{Inst: inst, Index: idx})
				}
			}
		}
	}
	return u
}

// At returns every use of v, or nil if v is never read.
func (u *Uses) At(v Value) []Use { return u.uses[v] }

// Count returns the number of uses of v.
func (u *Uses) Count(v Value) int { return len(u.uses[v]) }
