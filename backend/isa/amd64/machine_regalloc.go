package amd64

import "github.com/mjit-project/mjit/backend/regalloc"

// instEmitter appends the moves Spill/Unspill need directly onto the
// instruction stream being built for one block, implementing
// regalloc.Emitter. Grounded on X86CodeGen::regalloc's use of
// `_builder.move_before(block, inst)` to splice spill code immediately
// ahead of the instruction that triggered it -- this port achieves the
// same effect by building each block's instruction list into a fresh
// slice in program order, so whatever instEmitter appends lands right
// before the triggering instruction is itself appended.
type instEmitter struct {
	out *[]*Inst
}

func (e *instEmitter) EmitRegMove(dst, src regalloc.Reg) {
	*e.out = append(*e.out, &Inst{Kind: KindMovRR, Width: 8, Dst: RegOperand(dst), Src: RegOperand(src)})
}

func (e *instEmitter) EmitRegToStack(src regalloc.Reg, slot int) {
	*e.out = append(*e.out, &Inst{Kind: KindMovStore, Width: 8, Dst: spillOperand(slot), Src: RegOperand(src)})
}

func (e *instEmitter) EmitStackToReg(dst regalloc.Reg, slot int) {
	*e.out = append(*e.out, &Inst{Kind: KindMovRR, Width: 8, Dst: RegOperand(dst), Src: spillOperand(slot)})
}

// spillOperand addresses spill slot n as [rbp - n], matching the frame
// layout convention implied by x86gen.hpp's StackOffsetAlloc (offsets grow
// from 0 in units of 8, and the caller is expected to reserve that much
// below the frame pointer -- see machine.go's Compile for the prologue
// that actually carves out the frame).
func spillOperand(slot int) Operand {
	return MemOperand(Mem{Base: regalloc.Phys(uint32(RBP)), Disp: -int32(slot)})
}

// isDefOnly reports whether vreg's appearance in inst can be treated as a
// fresh definition even though inst is not vreg's first instruction by
// program order -- true for the destination side of a register-to-register
// move (these are how this port lowers Jump's block-argument parallel
// copies, so the destination is always a new binding regardless of where
// in the block the move sits) or when inst truly is vreg's first
// reference. Grounded on X86CodeGen::is_def_only, generalized from its
// single-Mov64 special case to every move Kind this port can emit for a
// parallel copy (MovRR, MovZX, MovSX).
func isDefOnly(vreg Reg, inst *Inst, vregs *regalloc.VRegTable) bool {
	switch inst.Kind {
	case KindMovRR, KindMovZX, KindMovSX:
		if inst.Dst.Kind == OperandReg && inst.Src.Kind == OperandReg &&
			vreg == inst.Dst.Reg && vreg != inst.Src.Reg {
			return true
		}
	}
	return inst.name == vregs.Info(vreg).Interval.Min
}

// loadBlockState installs state as the live register file, including
// pointing every live vreg's VRegInfo.CurrentReg back at the physical
// register state says it occupies -- RegFileState.LoadState only updates
// the register-file side of the bookkeeping, so without this second step
// every vreg carried across a block boundary would look unallocated to the
// very next instruction that reads it.
func loadBlockState(f *Func, rf *regalloc.RegFileState, state []regalloc.Reg) {
	rf.LoadState(state)
	for i, vreg := range state {
		if vreg.IsVirtual() {
			f.VRegs.Info(vreg).CurrentReg = regalloc.Phys(uint32(i))
		}
	}
}

// Allocate assigns a physical register (or stack slot) to every virtual
// register in f, rewriting every Inst's operands from vregs to pregs in
// place, eliding foldable register-to-register moves by reassigning the
// destination's physical register instead of emitting code, and
// reconciling the committed register-file state across every block
// boundary. Grounded on X86CodeGen::regalloc.
func Allocate(f *Func) {
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			inst.visitRegs(func(r *Reg) {
				if r.IsVirtual() {
					f.VRegs.Info(*r).Interval.Include(inst.name)
				}
			})
		}
	}

	rf := regalloc.NewRegFileState()
	rf.Disable(regalloc.Phys(uint32(RSP)))
	rf.Disable(regalloc.Phys(uint32(RBP)))
	stack := &regalloc.StackAlloc{}

	if len(f.Blocks) > 0 {
		initial := make([]regalloc.Reg, regalloc.NumRegs)
		for i := range initial {
			initial[i] = regalloc.Invalid
		}
		for _, vreg := range f.EntryArgs {
			info := f.VRegs.Info(vreg)
			initial[info.Fixed.ID()] = vreg
		}
		f.Blocks[0].EntryState = initial
	}

	for _, blk := range f.Blocks {
		if blk.EntryState != nil {
			loadBlockState(f, rf, blk.EntryState)
		}

		var out []*Inst
		e := &instEmitter{out: &out}

		for _, inst := range blk.Insts {
			if src, dst, ok := inst.IsFoldableMov(&f.VRegs); ok {
				srcInfo, dstInfo := f.VRegs.Info(src), f.VRegs.Info(dst)
				dstInfo.CurrentReg = srcInfo.CurrentReg
				rf.Set(srcInfo.CurrentReg, dst)
				rf.Touch(srcInfo.CurrentReg)
				srcInfo.CurrentReg = regalloc.Invalid
				continue
			}

			inst.visitRegs(func(r *Reg) {
				if !r.IsVirtual() {
					return
				}
				info := f.VRegs.Info(*r)
				if info.CurrentReg.IsInvalid() && info.Fixed.IsPhysical() {
					regalloc.SpillAndUnspill(rf, &f.VRegs, stack, e, info.Fixed, *r, isDefOnly(*r, inst, &f.VRegs), true)
				}
			})
			inst.visitRegs(func(r *Reg) {
				if !r.IsVirtual() {
					return
				}
				info := f.VRegs.Info(*r)
				if info.CurrentReg.IsInvalid() && !info.Fixed.IsPhysical() {
					preg := rf.GetFreeReg()
					if !preg.IsPhysical() {
						preg = rf.GetLRU()
					}
					regalloc.SpillAndUnspill(rf, &f.VRegs, stack, e, preg, *r, isDefOnly(*r, inst, &f.VRegs), true)
				}
			})

			type assign struct{ vreg, preg Reg }
			var assigns []assign
			inst.visitRegs(func(r *Reg) {
				if !r.IsVirtual() {
					return
				}
				info := f.VRegs.Info(*r)
				if !info.CurrentReg.IsPhysical() {
					panic("BUG: virtual register has no physical assignment at use")
				}
				rf.Touch(info.CurrentReg)
				assigns = append(assigns, assign{vreg: *r, preg: info.CurrentReg})
				*r = info.CurrentReg
			})

			out = append(out, inst)

			for _, a := range assigns {
				info := f.VRegs.Info(a.vreg)
				if inst.name == info.Interval.Max && rf.Get(a.preg) == a.vreg {
					rf.Free(a.preg)
					info.CurrentReg = regalloc.Invalid
					if info.StackOffset != 0 {
						stack.Free(info.StackOffset)
						info.StackOffset = 0
					}
				}
			}

			if isBranch(inst.Kind) {
				reconcileBlockBoundary(f, rf, stack, e, inst.Block, inst.Kind)
			}
		}

		blk.Insts = out
	}

	f.FrameSize = stack.FrameSize()
}

func isBranch(k Kind) bool {
	switch k {
	case KindJmp, KindJNE, KindJE, KindJL, KindJB:
		return true
	default:
		return false
	}
}

// reconcileBlockBoundary either commits the current register-file state as
// target's required entry state (the first edge reaching it) or, for a
// target already visited, emits whatever moves/spills are needed so every
// physical register matches target's committed state. Grounded on the
// second half of X86CodeGen::regalloc's per-instruction loop (the
// `holds_alternative<X86Block*>(inst->imm())` branch).
func reconcileBlockBoundary(f *Func, rf *regalloc.RegFileState, stack *regalloc.StackAlloc, e regalloc.Emitter, target *Block, kind Kind) {
	if target.EntryState != nil {
		if kind != KindJmp {
			panic("BUG: a conditional jump may not re-converge onto an already-allocated block")
		}
		for i := 0; i < regalloc.NumRegs; i++ {
			preg := regalloc.Phys(uint32(i))
			want := target.EntryState[i]
			if rf.Get(preg) == want {
				continue
			}
			// allowSpillToReg=false: a merge must settle into exactly
			// target's committed layout, never drift a value into some
			// other still-free register along the way.
			regalloc.SpillAndUnspill(rf, &f.VRegs, stack, e, preg, want, false, false)
		}
		return
	}

	firstName := 1 << 30
	if len(target.Insts) > 0 {
		firstName = target.Insts[0].name
	}
	state := make([]regalloc.Reg, regalloc.NumRegs)
	for i := 0; i < regalloc.NumRegs; i++ {
		preg := regalloc.Phys(uint32(i))
		r := rf.Get(preg)
		if r.IsVirtual() && f.VRegs.Info(r).Interval.Max >= firstName {
			state[i] = r
		} else {
			state[i] = regalloc.Invalid
		}
	}
	target.EntryState = state
}
