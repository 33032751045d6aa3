package regalloc

// Interval is the [Min,Max] instruction-index range over which a virtual
// register is live. This allocator has no interval-tree search -- Min/Max
// support IsFoldableMov's "this vreg is defined exactly once and consumed
// exactly once, right here" check, and Max also tells the allocator when a
// vreg's register can be freed after its last use, the same narrow uses
// x86gen.hpp's VRegInfo::interval serves.
type Interval struct {
	Min, Max int
	set      bool
}

// Empty reports whether Include has never been called.
func (iv *Interval) Empty() bool { return !iv.set }

// Include widens the interval to cover pos.
func (iv *Interval) Include(pos int) {
	if !iv.set {
		iv.Min, iv.Max = pos, pos
		iv.set = true
		return
	}
	if pos < iv.Min {
		iv.Min = pos
	}
	if pos > iv.Max {
		iv.Max = pos
	}
}

// VRegInfo is the per-virtual-register allocation state threaded through
// one Allocate pass. Grounded on X86CodeGen::VRegInfo.
type VRegInfo struct {
	// Fixed is set for a vreg that must live in one specific physical
	// register for its entire lifetime: entry-block parameters (the
	// fixed-register calling contract) and the RAX/RDX/RCX pins div/mod
	// and register-shift instructions require.
	Fixed Reg
	// Interval is this vreg's [Min,Max] instruction-index live range.
	Interval Interval
	// CurrentReg is the physical register presently holding this vreg's
	// value, or Invalid if it currently lives only on the stack.
	CurrentReg Reg
	// StackOffset is this vreg's spill slot, in bytes below the frame
	// pointer (RBP). Zero means "never spilled".
	StackOffset int
}

// VRegTable indexes VRegInfo by virtual register id.
type VRegTable struct {
	infos []VRegInfo
}

// New returns the Reg for a freshly allocated virtual register.
func (t *VRegTable) New() Reg {
	id := uint32(len(t.infos))
	t.infos = append(t.infos, VRegInfo{})
	return Virt(id)
}

// NewFixed is like New but pins the vreg to a physical register for its
// entire lifetime (used for entry-block parameters and div/mod/shift
// operands).
func (t *VRegTable) NewFixed(preg Reg) Reg {
	r := t.New()
	t.infos[r.ID()].Fixed = preg
	return r
}

// Info returns the mutable VRegInfo for vreg.
func (t *VRegTable) Info(vreg Reg) *VRegInfo { return &t.infos[vreg.ID()] }

// Len returns the number of virtual registers allocated so far.
func (t *VRegTable) Len() int { return len(t.infos) }
