package regalloc

import "math/bits"

// NumRegs is the size of the physical register file this allocator
// manages -- 16 general-purpose integer registers on amd64, matching
// x86gen.hpp's `RegFileState() { _regs.resize(16, Reg()); ... }`.
const NumRegs = 16

// regMask is a 16-bit set of physical register ids, the same trick
// x86gen.hpp's RegFileState uses (`uint16_t _free`) in place of a
// general-purpose bitset type -- NumRegs is small and fixed, so a plain
// machine word is simpler than importing a bitset package.
type regMask uint16

func maskBit(preg Reg) regMask { return 1 << preg.id }

// RegFileState tracks, for each physical register, which virtual register
// (if any) currently lives there, plus an LRU clock for eviction.
// Grounded on X86CodeGen::RegFileState.
type RegFileState struct {
	regs       [NumRegs]Reg
	free       regMask
	maxFree    regMask
	lru        [NumRegs]int
	lruCounter int
}

// NewRegFileState returns a RegFileState with every register enabled and
// free; callers Disable reserved registers (stack/frame pointer) before
// the first use.
func NewRegFileState() *RegFileState {
	full := regMask(1<<NumRegs - 1)
	return &RegFileState{free: full, maxFree: full}
}

// Size returns the number of register-file slots (always NumRegs).
func (rf *RegFileState) Size() int { return NumRegs }

// Disable permanently removes preg from consideration.
func (rf *RegFileState) Disable(preg Reg) {
	rf.maxFree &^= maskBit(preg)
	rf.lru[preg.id] = -(1 << 30)
}

// Get returns the vreg currently occupying preg, or Invalid.
func (rf *RegFileState) Get(preg Reg) Reg { return rf.regs[preg.id] }

// Set records that vreg now lives in preg.
func (rf *RegFileState) Set(preg, vreg Reg) {
	rf.regs[preg.id] = vreg
	rf.free &^= maskBit(preg)
}

// Touch bumps preg's LRU clock, marking it most-recently-used.
func (rf *RegFileState) Touch(preg Reg) {
	rf.lruCounter++
	rf.lru[preg.id] = rf.lruCounter
}

// Free marks preg as holding nothing.
func (rf *RegFileState) Free(preg Reg) {
	rf.regs[preg.id] = Invalid
	rf.free |= maskBit(preg)
}

// IsFree reports whether preg currently holds nothing.
func (rf *RegFileState) IsFree(preg Reg) bool { return rf.free&maskBit(preg) != 0 }

// IsDisabled reports whether preg was permanently removed via Disable.
func (rf *RegFileState) IsDisabled(preg Reg) bool { return rf.maxFree&maskBit(preg) == 0 }

// GetFreeReg returns an arbitrary free, enabled register, or Invalid if
// none remain.
func (rf *RegFileState) GetFreeReg() Reg {
	avail := rf.free & rf.maxFree
	if avail == 0 {
		return Invalid
	}
	return Phys(uint32(bits.TrailingZeros16(uint16(avail))))
}

// GetLRU returns the enabled physical register least recently Touch'd.
// Disabled registers are skipped, so callers must not invoke GetLRU
// when only disabled registers remain (the same precondition
// x86gen.hpp's get_lru relies on).
func (rf *RegFileState) GetLRU() Reg {
	minIdx, minVal := 0, int(^uint(0)>>1)
	for i := 0; i < NumRegs; i++ {
		if rf.IsDisabled(Phys(uint32(i))) {
			continue
		}
		if rf.lru[i] < minVal {
			minVal = rf.lru[i]
			minIdx = i
		}
	}
	return Phys(uint32(minIdx))
}

// SnapshotState copies the current register file into a fresh slice, the
// form a Block stores as its committed entry or exit register state.
func (rf *RegFileState) SnapshotState() []Reg {
	out := make([]Reg, NumRegs)
	copy(out, rf.regs[:])
	return out
}

// LoadState replaces the entire register file with state (one Reg per
// physical-register slot, Invalid meaning free), recomputing the free
// mask. Used when entering a block whose predecessor already committed a
// register assignment.
func (rf *RegFileState) LoadState(state []Reg) {
	rf.free = rf.maxFree
	for i := 0; i < NumRegs; i++ {
		rf.regs[i] = state[i]
		if !state[i].IsInvalid() {
			rf.free &^= 1 << uint(i)
		}
	}
}

// MergeState intersects state with the current file in place: any slot
// that disagrees between the two is cleared to Invalid, so a block with
// more than one predecessor only keeps the register assignments every
// predecessor agrees on. Used when a jump target already has a different
// committed state from an earlier predecessor.
func (rf *RegFileState) MergeState(state []Reg) {
	for i := 0; i < NumRegs; i++ {
		if state[i] != rf.regs[i] {
			state[i] = Invalid
		}
	}
}
