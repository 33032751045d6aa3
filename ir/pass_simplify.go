package ir

// substituteInSection walks every block forward, rewriting each
// instruction's operands through substs before asking fn whether the
// instruction itself can be replaced by some existing (or freshly built,
// via the supplied Builder positioned immediately before it) Value. A
// replaced instruction is unlinked, not erased, per this IR's logical
// deletion convention. Grounded on
// original_source/jitir.tmpl.hpp's Simplify::substitute.
func substituteInSection(sec *Section, fn func(b *Builder, inst *Instruction) (Value, bool)) bool {
	substs := make(map[Value]Value)
	b := NewBuilder(sec)
	changed := false

	for _, blk := range sec.Blocks() {
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

			b.MoveBefore(inst)
			if repl, ok := fn(b, inst); ok {
				substs[inst.Result()] = repl
				blk.Unlink(inst)
				changed = true
			}

			inst = next
		}
	}
	return changed
}

// Simplify repeatedly applies KnownBits-driven constant folding and
// UsedBits-driven mask/resize elision until a fixed point (or maxIters is
// reached), returning whether anything changed. Grounded on
// original_source/jitir.tmpl.hpp's Simplify class.
func Simplify(sec *Section, maxIters int) bool {
	ctx := sec.Context()
	anyChanged := false

	for iter := 0; iter < maxIters; iter++ {
		changed := false

		kb := ComputeKnownBits(sec)
		changed = substituteInSection(sec, func(b *Builder, inst *Instruction) (Value, bool) {
			if !inst.opcode.HasSideEffect() && !inst.opcode.IsTerminator() && inst.typ != TypeVoid {
				if kbv := kb.At(inst.Result()); kbv.IsConst() {
					return ctx.Const(inst.typ, kbv.Value), true
				}
			}

			switch inst.opcode {
			case OpAnd:
				a, bb := kb.At(inst.v1), kb.At(inst.v2)
				if bb.IsConst() && ((bb.Value^inst.typ.Mask())&(^a.Mask|a.Value)) == 0 {
					return inst.v1, true
				}
			case OpResizeU:
				if src, ok := sec.InstByValue(inst.v1); ok &&
					(src.opcode == OpResizeX || src.opcode == OpResizeU || src.opcode == OpResizeS) {
					innerArg := src.v1
					argBits := kb.At(innerArg)
					if innerArg.Type() == inst.typ &&
						inst.typ.BitWidth() > src.typ.BitWidth() &&
						((^argBits.Mask|argBits.Value)&^src.typ.Mask()&inst.typ.Mask()) == 0 {
						return innerArg, true
					}
				}
			}
			return ValueInvalid, false
		}) || changed

		ub := ComputeUsedBits(sec)
		changed = substituteInSection(sec, func(b *Builder, inst *Instruction) (Value, bool) {
			switch inst.opcode {
			case OpAnd:
				if cv, ok := constOperand(sec, inst.v2); ok {
					used := ub.At(inst.Result())
					if used.Used&^cv == 0 {
						return inst.v1, true
					}
				}
			case OpOr:
				if cv, ok := constOperand(sec, inst.v2); ok {
					used := ub.At(inst.Result())
					if used.Used&cv == 0 {
						return inst.v1, true
					}
				}
			case OpResizeU, OpResizeS:
				used := ub.At(inst.Result())
				mask := inst.typ.Mask() & inst.v1.Type().Mask()
				if used.Used&^mask == 0 {
					return b.FoldResizeX(inst.v1, inst.typ), true
				}
			}
			return ValueInvalid, false
		}) || changed

		if !changed {
			break
		}
		anyChanged = true
	}
	return anyChanged
}
