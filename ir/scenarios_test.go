package ir_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/interp"
	"github.com/mjit-project/mjit/ir"
)

// These mirror spec.md §8's worked examples end to end: build a Section
// with the folding Builder, verify it, interpret it, and check the
// concrete result. They exist to pin down this module's semantics, not to
// exercise any one pass in isolation.

func runEntry(t *testing.T, sec *ir.Section, entryArgs []ir.KnownBitsValue) *interp.Interpreter {
	t.Helper()
	var errs bytes.Buffer
	require.False(t, ir.Verify(sec, &errs), "verify failed: %s", errs.String())
	it := interp.NewInterpreter(sec, interp.NewMemory(), entryArgs, nil)
	ev := it.Run()
	require.Equal(t, interp.EventExit, ev)
	return it
}

func TestSumToNLoop(t *testing.T) {
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

	const outAddr = 0x1000
	it := runEntry(t, sec, []ir.KnownBitsValue{
		ir.NewConst(ir.TypeInt64, 10),
		ir.NewConst(ir.TypePtr, outAddr),
	})
	require.EqualValues(t, 45, it.Memory().Read(outAddr, 8))
}

func TestFibonacciLoop(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	n := entry.AddParam(sec, ir.TypeInt64)
	out := entry.AddParam(sec, ir.TypePtr)

	header := b.BuildBlock()
	i := header.AddParam(sec, ir.TypeInt64)
	a := header.AddParam(sec, ir.TypeInt64)
	bb := header.AddParam(sec, ir.TypeInt64)

	body := b.BuildBlock()
	exit := b.BuildBlock()

	b.MoveToEnd(entry)
	b.BuildJump(header, ctx.Const(ir.TypeInt64, 0), ctx.Const(ir.TypeInt64, 0), ctx.Const(ir.TypeInt64, 1))

	b.MoveToEnd(header)
	cond := b.FoldLtU(i, n)
	b.BuildBranch(cond, body, exit)

	b.MoveToEnd(body)
	newI := b.FoldAdd(i, ctx.Const(ir.TypeInt64, 1))
	newA := bb
	newB := b.FoldAdd(a, bb)
	b.BuildJump(header, newI, newA, newB)

	b.MoveToEnd(exit)
	b.BuildStore(out, a, -1, 0)
	b.BuildExit()

	const outAddr = 0x2000
	it := runEntry(t, sec, []ir.KnownBitsValue{
		ir.NewConst(ir.TypeInt64, 10),
		ir.NewConst(ir.TypePtr, outAddr),
	})
	require.EqualValues(t, 55, it.Memory().Read(outAddr, 8))
}

func TestSwapLoop(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	a0 := entry.AddParam(sec, ir.TypeInt64)
	b0 := entry.AddParam(sec, ir.TypeInt64)
	cond0 := entry.AddParam(sec, ir.TypeBool)
	outA := entry.AddParam(sec, ir.TypePtr)
	outB := entry.AddParam(sec, ir.TypePtr)

	header := b.BuildBlock()
	x := header.AddParam(sec, ir.TypeInt64)
	y := header.AddParam(sec, ir.TypeInt64)
	cond := header.AddParam(sec, ir.TypeBool)

	body := b.BuildBlock()
	exit := b.BuildBlock()

	b.MoveToEnd(entry)
	b.BuildJump(header, a0, b0, cond0)

	b.MoveToEnd(header)
	b.BuildBranch(cond, body, exit)

	b.MoveToEnd(body)
	b.BuildJump(header, y, x, ctx.ConstBool(false))

	b.MoveToEnd(exit)
	b.BuildStore(outA, x, -1, 0)
	b.BuildStore(outB, y, -2, 0)
	b.BuildExit()

	const addrA, addrB = 0x3000, 0x4000
	it := runEntry(t, sec, []ir.KnownBitsValue{
		ir.NewConst(ir.TypeInt64, 3),
		ir.NewConst(ir.TypeInt64, 7),
		ir.NewConst(ir.TypeBool, 1),
		ir.NewConst(ir.TypePtr, addrA),
		ir.NewConst(ir.TypePtr, addrB),
	})
	require.EqualValues(t, 7, it.Memory().Read(addrA, 8))
	require.EqualValues(t, 3, it.Memory().Read(addrB, 8))
}

func TestBranchWithPhi(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	cond := entry.AddParam(sec, ir.TypeBool)
	a := entry.AddParam(sec, ir.TypeInt64)
	bv := entry.AddParam(sec, ir.TypeInt64)
	out := entry.AddParam(sec, ir.TypePtr)

	trueBlk := b.BuildBlock()
	falseBlk := b.BuildBlock()
	join := b.BuildBlock()
	v := join.AddParam(sec, ir.TypeInt64)

	b.MoveToEnd(entry)
	b.BuildBranch(cond, trueBlk, falseBlk)

	b.MoveToEnd(trueBlk)
	b.BuildJump(join, a)

	b.MoveToEnd(falseBlk)
	b.BuildJump(join, bv)

	b.MoveToEnd(join)
	b.BuildStore(out, v, -1, 0)
	b.BuildExit()

	const outAddr = 0x5000

	for _, tc := range []struct {
		cond uint64
		want uint64
	}{
		{1, 11},
		{0, 22},
	} {
		it := runEntry(t, sec, []ir.KnownBitsValue{
			ir.NewConst(ir.TypeBool, tc.cond),
			ir.NewConst(ir.TypeInt64, 11),
			ir.NewConst(ir.TypeInt64, 22),
			ir.NewConst(ir.TypePtr, outAddr),
		})
		require.EqualValues(t, tc.want, it.Memory().Read(outAddr, 8))
	}
}

func TestLargeConstantSelect(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	cond := entry.AddParam(sec, ir.TypeBool)
	out := entry.AddParam(sec, ir.TypePtr)

	b.MoveToEnd(entry)
	const big1, big2 = 0x0123456789ABCDEF, 0xFEDCBA9876543210
	sel := b.FoldSelect(cond, ctx.Const(ir.TypeInt64, big1), ctx.Const(ir.TypeInt64, big2))
	b.BuildStore(out, sel, -1, 0)
	b.BuildExit()

	const outAddr = 0x6000
	it := runEntry(t, sec, []ir.KnownBitsValue{
		ir.NewConst(ir.TypeBool, 1),
		ir.NewConst(ir.TypePtr, outAddr),
	})
	require.EqualValues(t, big1, it.Memory().Read(outAddr, 8))
}

// TestModPowerOfTwoFolding exercises spec.md's fold_mod_u(x, 64) worked
// example: the fold must rewrite the mod into an and with the
// power-of-two-minus-one mask, and KnownBits must see the top bits of the
// result as known zero.
func TestModPowerOfTwoFolding(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	x := entry.AddParam(sec, ir.TypeInt64)

	b.MoveToEnd(entry)
	result := b.FoldModU(x, ctx.Const(ir.TypeInt64, 64))
	b.BuildExit()

	text := ir.WriteText(sec, nil)
	require.Contains(t, text, "and %0:i64,")
	require.NotContains(t, text, "mod_u")

	kb := ir.ComputeKnownBits(sec)
	bits := kb.At(result)
	for i := uint(6); i < uint(ir.TypeInt64.BitWidth()); i++ {
		value, known := bits.At(i)
		require.True(t, known, "bit %d should be known", i)
		require.False(t, value, "bit %d should be known zero", i)
	}
}

// TestOptimizationPipelinePreservesSemantics runs the sum-to-n loop through
// DeadCodeElim and Simplify and checks the optimized Section still
// interprets to the same answer -- a thin stand-in for spec.md's
// differential-equivalence property, which otherwise needs the x86 backend
// and an LLVM oracle neither of which this test has access to.
func TestOptimizationPipelinePreservesSemantics(t *testing.T) {
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
	// A dead computation that DeadCodeElim should remove entirely.
	_ = b.FoldMul(i, n)
	newSum := b.FoldAdd(sum, i)
	newI := b.FoldAdd(i, ctx.Const(ir.TypeInt64, 1))
	b.BuildJump(header, newI, newSum)

	b.MoveToEnd(exit)
	b.BuildStore(out, sum, -1, 0)
	b.BuildExit()

	ir.Simplify(sec, 4)
	ir.DeadCodeElim(sec)

	const outAddr = 0x7000
	it := runEntry(t, sec, []ir.KnownBitsValue{
		ir.NewConst(ir.TypeInt64, 10),
		ir.NewConst(ir.TypePtr, outAddr),
	})
	require.EqualValues(t, 45, it.Memory().Read(outAddr, 8))
}
