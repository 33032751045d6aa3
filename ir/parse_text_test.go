package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/ir"
)

func TestParseTextRoundTripsWriteTextOutput(t *testing.T) {
	sec := buildSumToNSection(t)
	text := ir.WriteText(sec, nil)

	parsed, err := ir.ParseText(ir.NewContext(), text)
	require.NoError(t, err)

	require.Equal(t, text, ir.WriteText(parsed, nil))
}

func TestParseTextReconstructsRunnableSection(t *testing.T) {
	sec := buildSumToNSection(t)
	text := ir.WriteText(sec, nil)

	parsed, err := ir.ParseText(ir.NewContext(), text)
	require.NoError(t, err)

	const outAddr = 0x9000
	it := runEntry(t, parsed, []ir.KnownBitsValue{
		ir.NewConst(ir.TypeInt64, 10),
		ir.NewConst(ir.TypePtr, outAddr),
	})
	require.EqualValues(t, 45, it.Memory().Read(outAddr, 8))
}

func TestParseTextRejectsUndeclaredBlock(t *testing.T) {
	const src = "section {\nb0():\n  jump b1()\n}\n"
	_, err := ir.ParseText(ir.NewContext(), src)
	require.Error(t, err)
}

func buildSumToNSection(t *testing.T) *ir.Section {
	t.Helper()
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	n := entry.AddParam(sec, ir.TypeInt64)
	out := entry.AddParam(sec, ir.TypePtr)

	header := b.BuildBlock()
	i := header.AddParam(sec, ir.TypeInt64)
	sum := header.AddParam(sec, ir.TypeInt64)

	body := b.BuildBlock()
	exit := b.BuildBlock()

	b.MoveToEnd(entry)
	b.BuildJump(header, ctx.Const(ir.TypeInt64, 0), ctx.Const(ir.TypeInt64, 0))

	b.MoveToEnd(header)
	cond := b.FoldLtU(i, n)
	b.BuildBranch(cond, body, exit)

	b.MoveToEnd(body)
	newSum := b.FoldAdd(sum, i)
	newI := b.FoldAdd(i, ctx.Const(ir.TypeInt64, 1))
	b.BuildJump(header, newI, newSum)

	b.MoveToEnd(exit)
	b.BuildStore(out, sum, -1, 0)
	b.BuildExit()

	return sec
}
