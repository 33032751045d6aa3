package interp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/interp"
	"github.com/mjit-project/mjit/ir"
)

func TestRunUntilBlockStopsAtNamedBlock(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	mid := b.BuildBlock()
	final := b.BuildBlock()

	b.MoveToEnd(entry)
	b.BuildJump(mid)
	b.MoveToEnd(mid)
	b.BuildJump(final)
	b.MoveToEnd(final)
	b.BuildExit()

	it := interp.NewInterpreter(sec, nil, nil, nil)
	ev := it.RunUntilBlock(final.Name())
	require.Equal(t, interp.EventEnterBlock, ev)
	require.Equal(t, final, it.Block())

	require.Equal(t, interp.EventExit, it.Run())
}

func TestInputOutputOpcodesThreadValuesThroughTheInterpreter(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	b.MoveToEnd(entry)
	v := b.BuildInput(ir.TypeInt64)
	doubled := b.BuildAdd(v, v)
	b.BuildOutput(doubled)
	b.BuildExit()

	it := interp.NewInterpreter(sec, nil, nil, []ir.KnownBitsValue{ir.NewConst(ir.TypeInt64, 21)})
	require.Equal(t, interp.EventExit, it.Run())
	require.Equal(t, []ir.KnownBitsValue{ir.NewConst(ir.TypeInt64, 42)}, it.Outputs())
}

func TestLoadReadsBackWhatStoreWrote(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	ptr := entry.AddParam(sec, ir.TypePtr)
	val := entry.AddParam(sec, ir.TypeInt32)
	out := entry.AddParam(sec, ir.TypePtr)

	b.MoveToEnd(entry)
	b.BuildStore(ptr, val, -1, 4)
	loaded := b.BuildLoad(ptr, ir.TypeInt32, ir.LoadPure, -1, 4)
	b.BuildStore(out, loaded, -2, 0)
	b.BuildExit()

	const base, outAddr = 0x100, 0x200
	it := interp.NewInterpreter(sec, interp.NewMemory(), []ir.KnownBitsValue{
		ir.NewConst(ir.TypePtr, base),
		ir.NewConst(ir.TypeInt32, 0xCAFEBABE),
		ir.NewConst(ir.TypePtr, outAddr),
	}, nil)
	require.Equal(t, interp.EventExit, it.Run())
	require.EqualValues(t, 0xCAFEBABE, it.Memory().Read(outAddr, 4))
	require.EqualValues(t, 0, it.Memory().Read(base, 4), "the store landed at base+4, not base")
}
