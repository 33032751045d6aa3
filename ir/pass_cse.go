package ir

// cseKey is a structural equality key for value-numbering: two
// pure instructions with the same opcode, result type, and operands are
// interchangeable. Constant operands need no special-casing here, unlike
// original_source/jitir.tmpl.hpp's CommonSubexprElim (which keeps a
// separate consts cache): this IR's Context already interns every
// constant by (type, value), so two structurally-equal constants are
// already the same Value.
type cseKey struct {
	op             Opcode
	typ            Type
	v1, v2, v3     Value
	aliasing       int64
	offset         uint64
	flags          LoadFlags
}

func cseKeyOf(inst *Instruction) cseKey {
	return cseKey{
		op: inst.opcode, typ: inst.typ,
		v1: inst.v1, v2: inst.v2, v3: inst.v3,
		aliasing: inst.aliasing, offset: inst.offset, flags: inst.flags,
	}
}

// CommonSubexprElim merges structurally identical pure instructions within
// each block (including loads, made safe by invalidating the per-block
// load cache whenever an aliasing store is seen), substituting later
// uses with the first occurrence. Grounded on
// original_source/jitir.tmpl.hpp's CommonSubexprElim -- block-local, not
// whole-Section, matching the original exactly.
func CommonSubexprElim(sec *Section) bool {
	changed := false
	substs := make(map[Value]Value)

	for _, blk := range sec.Blocks() {
		canon := make(map[cseKey]*Instruction)
		validLoads := make(map[int64][]*Instruction)

		for inst := blk.Root(); inst != nil; {
			next := inst.Next()

			if rv, ok := substs[inst.v1]; ok {
				inst.v1 = rv
			}
			if rv, ok := substs[inst.v2]; ok {
				inst.v2 = rv
			}
			if rv, ok := substs[inst.v3]; ok {
				inst.v3 = rv
			}
			for i, v := range inst.vs {
				if rv, ok := substs[v]; ok {
					inst.vs[i] = rv
				}
			}

			if inst.opcode == OpStore {
				remaining := validLoads[inst.aliasing][:0]
				for _, load := range validLoads[inst.aliasing] {
					if aliasOverlap(load, inst.v1, inst.v2.Type(), inst.aliasing, inst.offset) {
						delete(canon, cseKeyOf(load))
					} else {
						remaining = append(remaining, load)
					}
				}
				validLoads[inst.aliasing] = remaining
			}

			if inst.opcode.HasSideEffect() || inst.opcode.IsTerminator() || inst.opcode == OpComment {
				inst = next
				continue
			}

			key := cseKeyOf(inst)
			if existing, ok := canon[key]; ok {
				substs[inst.Result()] = existing.Result()
				blk.Unlink(inst)
				changed = true
			} else {
				canon[key] = inst
				if inst.opcode == OpLoad {
					validLoads[inst.aliasing] = append(validLoads[inst.aliasing], inst)
				}
			}

			inst = next
		}
	}
	return changed
}
