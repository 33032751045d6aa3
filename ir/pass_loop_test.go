package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/interp"
	"github.com/mjit-project/mjit/ir"
)

// buildInvariantLoadLoop builds a sum-to-n loop where the body repeatedly
// reads *ptr (loop-invariant, never stored to) and accumulates it n times,
// the shape LoopInvCodeMotion/ChainLoopMem2Reg are meant to clean up.
func buildInvariantLoadLoop(t *testing.T) (sec *ir.Section, header, body *ir.Block) {
	t.Helper()
	ctx := ir.NewContext()
	sec = ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	ptr := entry.AddParam(sec, ir.TypePtr)
	n := entry.AddParam(sec, ir.TypeInt64)
	out := entry.AddParam(sec, ir.TypePtr)

	header = b.BuildBlock()
	i := header.AddParam(sec, ir.TypeInt64)
	sum := header.AddParam(sec, ir.TypeInt64)

	body = b.BuildBlock()
	exit := b.BuildBlock()

	b.MoveToEnd(entry)
	b.BuildJump(header, ctx.Const(ir.TypeInt64, 0), ctx.Const(ir.TypeInt64, 0))

	b.MoveToEnd(header)
	cond := b.FoldLtU(i, n)
	b.BuildBranch(cond, body, exit)

	b.MoveToEnd(body)
	val := b.BuildLoad(ptr, ir.TypeInt64, ir.LoadInBounds, -1, 0)
	newSum := b.FoldAdd(sum, val)
	newI := b.FoldAdd(i, ctx.Const(ir.TypeInt64, 1))
	b.BuildJump(header, newI, newSum)

	b.MoveToEnd(exit)
	b.BuildStore(out, sum, -2, 0)
	b.BuildExit()

	return sec, header, body
}

func TestDiscoverLoopFindsPreheaderAndExtent(t *testing.T) {
	sec, header, body := buildInvariantLoadLoop(t)
	entry := sec.Blocks()[0]

	loop, ok := ir.DiscoverLoop(header)
	require.True(t, ok)
	require.Equal(t, entry, loop.Preheader)
	require.Equal(t, header, loop.Header)
	require.True(t, loop.Contains(body), "the extent block is body")
	require.Equal(t, []*ir.Block{header, body}, loop.Body.Blocks())
}

func TestChainLoopMem2RegPromotesInvariantLoad(t *testing.T) {
	sec, header, body := buildInvariantLoadLoop(t)

	loop, ok := ir.DiscoverLoop(header)
	require.True(t, ok)

	paramsBefore := header.Params()
	ir.ChainLoopMem2Reg(sec, loop)
	require.Equal(t, paramsBefore+1, header.Params(), "the invariant load should become a new header parameter")

	var loadsInBody int
	for inst := body.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpLoad {
			loadsInBody++
		}
	}
	require.Zero(t, loadsInBody, "the promoted load must no longer live in the loop body")

	const ptrAddr, outAddr = 0x9000, 0xA000
	mem := interp.NewMemory()
	mem.Write(ptrAddr, 8, 4)
	it := interp.NewInterpreter(sec, mem, []ir.KnownBitsValue{
		ir.NewConst(ir.TypePtr, ptrAddr),
		ir.NewConst(ir.TypeInt64, 5),
		ir.NewConst(ir.TypePtr, outAddr),
	}, nil)
	require.Equal(t, interp.EventExit, it.Run())
	require.EqualValues(t, 20, it.Memory().Read(outAddr, 8))
}

func TestLoopInvCodeMotionHoistsInvariantArithmetic(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	x := entry.AddParam(sec, ir.TypeInt64)
	y := entry.AddParam(sec, ir.TypeInt64)
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
	invariant := b.BuildMul(x, y) // not foldable since x,y are opaque Args
	newSum := b.FoldAdd(sum, invariant)
	newI := b.FoldAdd(i, ctx.Const(ir.TypeInt64, 1))
	b.BuildJump(header, newI, newSum)

	b.MoveToEnd(exit)
	b.BuildStore(out, sum, -1, 0)
	b.BuildExit()

	loop, ok := ir.DiscoverLoop(header)
	require.True(t, ok)

	changed := ir.LoopInvCodeMotion(sec, loop)
	require.True(t, changed)

	var mulsInBody, mulsInPreheader int
	for inst := body.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpMul {
			mulsInBody++
		}
	}
	for inst := entry.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpMul {
			mulsInPreheader++
		}
	}
	require.Zero(t, mulsInBody)
	require.Equal(t, 1, mulsInPreheader)
}
