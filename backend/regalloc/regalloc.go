package regalloc

// Emitter is the minimal code-emission surface Spill/Unspill need from a
// concrete ISA backend: move a value between two physical registers, or
// between a physical register and a spill slot.
type Emitter interface {
	EmitRegMove(dst, src Reg)
	EmitRegToStack(src Reg, slot int)
	EmitStackToReg(dst Reg, slot int)
}

// StackAlloc is a free-list spill-slot allocator. Grounded on
// X86CodeGen::StackOffsetAlloc: offsets are 8-byte-aligned and freed slots
// are reused before the frame grows further.
type StackAlloc struct {
	maxOffset int
	freed     []int
}

// Alloc returns a fresh (or reused) spill-slot offset, always nonzero so
// VRegInfo.StackOffset == 0 can mean "never spilled".
func (s *StackAlloc) Alloc() int {
	if len(s.freed) == 0 {
		s.maxOffset += 8
		return s.maxOffset
	}
	n := len(s.freed) - 1
	off := s.freed[n]
	s.freed = s.freed[:n]
	return off
}

// Free returns offset to the pool for reuse.
func (s *StackAlloc) Free(offset int) { s.freed = append(s.freed, offset) }

// FrameSize returns the number of bytes of spill space the allocator has
// handed out at its high-water mark.
func (s *StackAlloc) FrameSize() int { return s.maxOffset }

// Spill evicts preg's current occupant from the register file: if another
// physical register is free and allowSpillToReg, the value simply moves
// there; otherwise it is written to its (possibly newly allocated) stack
// slot. A no-op if preg currently holds nothing. Grounded on
// X86CodeGen::spill.
func Spill(rf *RegFileState, vregs *VRegTable, stack *StackAlloc, e Emitter, preg Reg, allowSpillToReg bool) {
	vreg := rf.Get(preg)
	if !vreg.IsVirtual() {
		return
	}
	info := vregs.Info(vreg)
	if allowSpillToReg {
		if free := rf.GetFreeReg(); free.IsPhysical() {
			e.EmitRegMove(free, preg)
			rf.Free(preg)
			info.CurrentReg = free
			rf.Set(free, vreg)
			return
		}
	}
	if info.StackOffset == 0 {
		info.StackOffset = stack.Alloc()
	}
	e.EmitRegToStack(preg, info.StackOffset)
	rf.Free(preg)
	info.CurrentReg = Invalid
}

// Unspill loads vreg into preg, from wherever it currently lives (another
// physical register, or its spill slot). Grounded on X86CodeGen::unspill.
func Unspill(rf *RegFileState, vregs *VRegTable, e Emitter, vreg, preg Reg) {
	info := vregs.Info(vreg)
	if info.CurrentReg.IsPhysical() {
		e.EmitRegMove(preg, info.CurrentReg)
		rf.Free(info.CurrentReg)
	} else {
		e.EmitStackToReg(preg, info.StackOffset)
	}
	info.CurrentReg = preg
	rf.Set(preg, vreg)
}

// SpillAndUnspill evicts preg's current occupant, then either binds vreg
// to preg directly (isDef: an instruction is about to define vreg there,
// so no load is needed) or unspills vreg's existing value into preg.
// Grounded on X86CodeGen::spill_and_unspill.
func SpillAndUnspill(rf *RegFileState, vregs *VRegTable, stack *StackAlloc, e Emitter, preg, vreg Reg, isDef, allowSpillToReg bool) {
	Spill(rf, vregs, stack, e, preg, allowSpillToReg)
	if !vreg.IsVirtual() {
		return
	}
	if isDef {
		vregs.Info(vreg).CurrentReg = preg
		rf.Set(preg, vreg)
	} else {
		Unspill(rf, vregs, e, vreg, preg)
	}
	rf.Touch(preg)
}

// SpillAll evicts every occupied, non-free register in the file to its
// stack slot -- used at points (the entry of a multi-predecessor block)
// where no committed register state can be assumed. Grounded on
// X86CodeGen::spill_all.
func SpillAll(rf *RegFileState, vregs *VRegTable, stack *StackAlloc, e Emitter) {
	for i := 0; i < rf.Size(); i++ {
		preg := Phys(uint32(i))
		if !rf.IsFree(preg) && !rf.IsDisabled(preg) {
			Spill(rf, vregs, stack, e, preg, false)
		}
	}
}
