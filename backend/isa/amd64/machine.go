// Package amd64 lowers an optimized ir.Section into x86-64 machine code:
// instruction selection (isel.go) produces virtual-register code, Allocate
// (machine_regalloc.go) assigns physical registers and stack slots,
// peephole cleans up the result, and Encode (instr_encoding.go) renders it
// to bytes. Grounded throughout on original_source/x86gen.hpp's
// X86CodeGen, whose constructor runs exactly this pipeline
// (memory_deps/isel/autoname_insts/regalloc/peephole) before emit/deploy.
package amd64

import "github.com/mjit-project/mjit/ir"

// CompiledFunc is the result of compiling one Section: its machine code
// plus enough bookkeeping to deploy it. Grounded on the (bytes, entry
// point) pair X86CodeGen::save/deploy work from.
type CompiledFunc struct {
	Code      []byte
	FrameSize int
}

// Compile lowers sec all the way to machine code: Select, Allocate,
// peephole, Encode, in that order -- the same order X86CodeGen::run drives
// its passes in (memory_deps/isel/autoname_insts are folded into Select
// here, since this port's isel already produces clean, zero/sign-extended
// vregs without a separate memory-dependency analysis pass -- see
// DESIGN.md).
func Compile(sec *ir.Section) *CompiledFunc {
	f := Select(sec)
	Allocate(f)
	peephole(f)
	return &CompiledFunc{Code: Encode(f), FrameSize: f.FrameSize}
}
