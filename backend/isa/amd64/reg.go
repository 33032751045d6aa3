// Package amd64 is the x86-64 backend: instruction selection, the
// streaming register allocator's ISA-specific half (instruction shapes,
// fixed-register pins), a REX/ModRM/SIB encoder, and mmap-based
// deployment into executable memory. Grounded throughout on
// original_source/x86gen.hpp (X86CodeGen) and x86insts.inc.hpp (the
// instruction table), restricted to the integer opcode set spec.md names
// -- no SSE/vector encoding, since floats are declared but never emitted
// per spec.md §1 Non-goals. File layout (reg.go/instr.go/
// instr_encoding.go/machine.go) follows
// tetratelabs-wazero/internal/engine/wazevo/backend/isa/amd64's
// convention; unlike that package, there is only ever one Machine here
// (spec.md's Non-goals exclude cross-platform backends), so there is no
// generic backend.Machine interface to implement.
package amd64

import "github.com/mjit-project/mjit/backend/regalloc"

// Reg is this package's register type, re-exported from backend/regalloc
// for callers that only import amd64.
type Reg = regalloc.Reg

// Physical register ids, in the x86-64 ModRM/REX numbering (the same
// numbering original_source/x86gen.hpp's REG_RAX..REG_RBP constants use,
// extended here through R15 since x86insts.inc.hpp's REX handling
// requires the full 16-register file to be named).
const (
	RAX = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

var regNames64 = [regalloc.NumRegs]string{
	RAX: "rax", RCX: "rcx", RDX: "rdx", RBX: "rbx",
	RSP: "rsp", RBP: "rbp", RSI: "rsi", RDI: "rdi",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11",
	R12: "r12", R13: "r13", R14: "r14", R15: "r15",
}

var regNames8 = [regalloc.NumRegs]string{
	RAX: "al", RCX: "cl", RDX: "dl", RBX: "bl",
	RSP: "spl", RBP: "bpl", RSI: "sil", RDI: "dil",
	R8: "r8b", R9: "r9b", R10: "r10b", R11: "r11b",
	R12: "r12b", R13: "r13b", R14: "r14b", R15: "r15b",
}

func physName(r Reg, bits8 bool) string {
	if !r.IsPhysical() {
		return r.String()
	}
	if bits8 {
		return regNames8[r.ID()]
	}
	return regNames64[r.ID()]
}

// entryArgRegs is the fixed-register contract for entry-block parameters:
// the System V AMD64 integer/pointer argument registers, in order. Since
// spec.md's Non-goals exclude an ABI/Wasm calling-convention layer, this
// module doesn't need a general FunctionABI -- entry parameters simply
// claim a prefix of this list, generalizing
// original_source/x86gen.hpp's "Entry arguments must be in fixed
// registers" assertion (x86gen.hpp's own language has no entry-argument
// count limit because its caller is a single fixed-arity harness; this
// port documents the limit explicitly instead).
var entryArgRegs = []int{RDI, RSI, RDX, RCX, R8, R9}

// reservedRegs are never handed to the allocator: RSP (stack pointer) and
// RBP (frame pointer), matching X86CodeGen::RegFileState's
// disable(REG_RSP)/disable(REG_RBP).
var reservedRegs = []int{RSP, RBP}
