package ir

// RefineAliasing rewrites a Load/Store's aliasing group to the negative
// "exact" encoding (spec.md §3's aliasing-group convention: group >= 0 is a
// coarse region that may contain several live addresses, group < 0 denotes
// exactly one address) whenever ConstnessAnalysis and KnownBits together
// prove the pointer is a compile-time-fixed address: the negative group is
// synthesized as -(1+constGroup), so two loads/stores that provably target
// the same constant-group pointer and offset always land on the same exact
// group and become eligible for TraceBuilder/CommonSubexprElim's cheaper
// exact-group bookkeeping. Grounded on original_source/jitir.tmpl.hpp's
// RefineAliasing class.
func RefineAliasing(sec *Section) bool {
	ca := ComputeConstness(sec)
	changed := false

	for _, blk := range sec.Blocks() {
		for inst := blk.Root(); inst != nil; inst = inst.Next() {
			if inst.opcode != OpLoad && inst.opcode != OpStore {
				continue
			}
			if inst.aliasing < 0 {
				continue
			}
			group := ca.At(inst.v1)
			exact := -(int64(group) + 1)
			if exact == inst.aliasing {
				continue
			}
			inst.SetAliasing(exact)
			changed = true
		}
	}
	return changed
}
