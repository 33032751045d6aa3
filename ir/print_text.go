package ir

import (
	"fmt"
	"strings"
)

// InfoWriter lets a caller (typically an analysis) attach one trailing
// comment to an instruction's printed line, per spec.md §4.8.
type InfoWriter func(inst *Instruction) string

// WriteText renders sec in the line-oriented textual dialect spec.md §4.8
// describes: `section { ... }` wrapping `b<n>(args):` block headers
// followed by two-space-indented typed instruction statements, one
// trailing `# info` comment per line when info is non-nil. Grounded in
// style on ssa.builder.Format/basicBlock.FormatHeader
// (tetratelabs-wazero/internal/engine/wazevo/ssa/builder.go) for the
// indentation and block-header shape; the comment-prefix choice (`#`) is
// this module's own pick, recorded in DESIGN.md, since the teacher has no
// per-instruction comment convention to borrow.
func WriteText(sec *Section, info InfoWriter) string {
	var b strings.Builder
	writeConsts(&b, sec.Context())
	b.WriteString("section {\n")
	for _, blk := range sec.Blocks() {
		writeBlockHeader(&b, blk)
		for inst := blk.Root(); inst != nil; inst = inst.Next() {
			b.WriteString("  ")
			writeInst(&b, inst)
			if info != nil {
				if c := info(inst); c != "" {
					b.WriteString("  # ")
					b.WriteString(c)
				}
			}
			b.WriteByte('\n')
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// writeConsts emits the constant table as a leading `consts { ... }` block
// ahead of the section body, one `c<id>:<type> = <value>` line per entry --
// without it, a re-parse of WriteText's output would have no way to learn
// what a "cN:type" reference textually stands for, since every other use of
// a constant Value only ever prints its (kind, id, type), never its
// payload. Not part of spec.md's textual dialect description, but required
// for ParseText to be a genuine inverse of WriteText.
func writeConsts(b *strings.Builder, ctx *Context) {
	n := ctx.ConstCount()
	if n == 0 {
		return
	}
	b.WriteString("consts {\n")
	for id := 0; id < n; id++ {
		typ, val := ctx.ConstAt(ValueID(id))
		fmt.Fprintf(b, "  c%d:%s = %d\n", id, typ, val)
	}
	b.WriteString("}\n")
}

func writeBlockHeader(b *strings.Builder, blk *Block) {
	fmt.Fprintf(b, "%s(", blk.Name())
	for i := 0; i < blk.Params(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(blk.Param(i).String())
	}
	b.WriteString("):\n")
}

func writeInst(b *strings.Builder, inst *Instruction) {
	if inst.Result().Valid() {
		fmt.Fprintf(b, "%s = ", inst.Result())
	}
	b.WriteString(inst.Opcode().String())

	switch inst.Opcode() {
	case OpJump:
		fmt.Fprintf(b, " %s(", inst.Target().Name())
		for i, a := range inst.JumpArgs() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteByte(')')
	case OpBranch:
		fmt.Fprintf(b, " %s, %s, %s", inst.Arg(), inst.Target().Name(), inst.Target2().Name())
	case OpExit:
	case OpComment:
		fmt.Fprintf(b, " %q", inst.Comment())
	case OpLoad:
		fmt.Fprintf(b, " %s aliasing=%d offset=%d", inst.Arg(), inst.Aliasing(), inst.Offset())
	case OpStore:
		a1, a2 := inst.Arg2()
		fmt.Fprintf(b, " %s, %s aliasing=%d offset=%d", a1, a2, inst.Aliasing(), inst.Offset())
	default:
		for i, a := range inst.Args() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte(' ')
			b.WriteString(a.String())
		}
	}
}
