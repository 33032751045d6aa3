package ir

// ConstGroupAlways is the sentinel constness group containing every value
// that is a genuine compile-time constant (or behaves like one): block
// parameters and anything derived from a non-constant input never belong
// to it.
const ConstGroupAlways = 0

// ConstnessAnalysis partitions every Value into a "constness group": two
// values sharing a group are either both ConstGroupAlways (truly constant)
// or both derived from exactly the same set of non-constant roots, so
// equality between them can be recomputed purely from compile-time
// information once those roots are known. Used by RefineAliasing to decide
// which loads/stores can be assigned a more precise aliasing group, and by
// CommonSubexprElim-adjacent reasoning about when a value is safe to
// rematerialize. Grounded on
// original_source/jitir.tmpl.hpp's ConstnessAnalysis.
type ConstnessAnalysis struct {
	groups   []int // indexed by ValueID.
	nextID   int
}

// ComputeConstness runs the analysis over every block of sec.
func ComputeConstness(sec *Section) *ConstnessAnalysis {
	ca := &ConstnessAnalysis{groups: make([]int, sec.NameCount()), nextID: 1}

	at := func(v Value) int {
		if v.IsConst() {
			return ConstGroupAlways
		}
		return ca.groups[v.ID()]
	}

	for _, blk := range sec.Blocks() {
		for i := 0; i < blk.Params(); i++ {
			ca.groups[blk.Param(i).ID()] = ca.nextID
			ca.nextID++
		}

		for inst := blk.Root(); inst != nil; inst = inst.Next() {
			if !inst.Result().Valid() {
				continue
			}
			id := inst.Result().ID()

			switch {
			case inst.opcode == OpFreeze || inst.opcode == OpAssumeConst:
				ca.groups[id] = ConstGroupAlways
				continue
			case inst.opcode == OpLoad:
				if inst.flags.Has(LoadPure) {
					ca.groups[id] = at(inst.v1)
				} else {
					ca.groups[id] = ca.nextID
					ca.nextID++
				}
				continue
			case inst.opcode.HasSideEffect() || inst.opcode.IsTerminator():
				ca.groups[id] = ca.nextID
				ca.nextID++
				continue
			}

			group := ConstGroupAlways
			conflict := false
			inst.ForEachArg(func(v Value) {
				g := at(v)
				if g == ConstGroupAlways || conflict {
					return
				}
				if group == ConstGroupAlways {
					group = g
				} else if group != g {
					conflict = true
				}
			})
			if conflict {
				group = ca.nextID
			}

			// And/Or/Select short-circuit: a result can be const even when
			// not every operand is, so it needs its own group rather than
			// silently inheriting one operand's.
			if group != ConstGroupAlways && (inst.opcode == OpAnd || inst.opcode == OpOr || inst.opcode == OpSelect) {
				group = ca.nextID
			}

			if group == ca.nextID {
				ca.nextID++
			}
			ca.groups[id] = group
		}
	}
	return ca
}

// At returns v's constness group.
func (ca *ConstnessAnalysis) At(v Value) int {
	if v.IsConst() {
		return ConstGroupAlways
	}
	return ca.groups[v.ID()]
}
