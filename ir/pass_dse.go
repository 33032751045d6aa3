package ir

// DeadStoreElim removes a store that is guaranteed to be overwritten by a
// later store to the same (aliasing group, pointer, offset) before any
// intervening load or aliasing store could observe it -- a whole-Section
// generalization of the local last-write-wins reasoning TraceBuilder.FoldStore
// already applies at construction time. Grounded on
// original_source/jitir.tmpl.hpp's DeadStoreElim class.
func DeadStoreElim(sec *Section) bool {
	changed := false

	for _, blk := range sec.Blocks() {
		type key struct {
			aliasing int64
			ptr      Value
			offset   uint64
		}
		last := make(map[key]*Instruction)

		for inst := blk.Root(); inst != nil; inst = inst.Next() {
			switch inst.opcode {
			case OpLoad:
				for k, store := range last {
					if aliasOverlap(store, inst.v1, inst.typ, k.aliasing, inst.offset) {
						delete(last, k)
					}
				}

			case OpStore:
				k := key{aliasing: inst.aliasing, ptr: inst.v1, offset: inst.offset}
				if prior, ok := last[k]; ok {
					blk.Unlink(prior)
					changed = true
				}
				if inst.aliasing >= 0 {
					for ok, store := range last {
						if ok != k && aliasOverlap(store, inst.v1, inst.v2.Type(), inst.aliasing, inst.offset) {
							delete(last, ok)
						}
					}
				}
				last[k] = inst

			default:
				if inst.opcode.HasSideEffect() {
					last = make(map[key]*Instruction)
				}
			}
		}
	}
	return changed
}
