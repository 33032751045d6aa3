// Package regalloc implements a single forward-pass streaming register
// allocator: LRU eviction with spill-to-stack, fixed-register pins for
// values that must live in one specific physical register for their whole
// lifetime (entry-block parameters, the RAX/RDX halves of div/mod, the RCX
// shift count), and block-boundary register-state reconciliation when a
// jump target has already committed an assignment from another
// predecessor. Grounded on original_source/x86gen.hpp's X86CodeGen's
// nested Reg/VRegInfo/RegFileState/regalloc, pulled out into its own
// package the way backend/regalloc
// (tetratelabs-wazero/internal/engine/wazevo/backend/regalloc) is its own
// package rather than living inside one Machine implementation -- unlike
// the teacher's interval-tree/graph-coloring allocator, this one follows
// the simpler streaming algorithm spec.md §4.6 and x86gen.hpp actually
// specify.
package regalloc

import "fmt"

// Kind discriminates Reg's three states.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPhysical
	KindVirtual
)

// Reg is either a physical register, a virtual register awaiting
// allocation, or the zero/invalid Reg (an empty register-file slot, an
// un-fixed VRegInfo, or "no register").
type Reg struct {
	kind Kind
	id   uint32
}

// Invalid is the zero Reg.
var Invalid = Reg{}

// Phys returns the physical register with the given id, in [0, NumRegs).
func Phys(id uint32) Reg { return Reg{kind: KindPhysical, id: id} }

// Virt returns the virtual register with the given id.
func Virt(id uint32) Reg { return Reg{kind: KindVirtual, id: id} }

func (r Reg) IsInvalid() bool  { return r.kind == KindInvalid }
func (r Reg) IsPhysical() bool { return r.kind == KindPhysical }
func (r Reg) IsVirtual() bool  { return r.kind == KindVirtual }
func (r Reg) ID() uint32       { return r.id }

// String implements fmt.Stringer. Physical registers print generically
// ("p3"); isa/amd64 has its own named formatter for disassembly.
func (r Reg) String() string {
	switch r.kind {
	case KindPhysical:
		return fmt.Sprintf("p%d", r.id)
	case KindVirtual:
		return fmt.Sprintf("v%d", r.id)
	default:
		return "<none>"
	}
}
