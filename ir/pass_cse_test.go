package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/ir"
)

func TestCommonSubexprElimDedupesRepeatedLoad(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	ptr := entry.AddParam(sec, ir.TypePtr)
	out := entry.AddParam(sec, ir.TypePtr)

	b.MoveToEnd(entry)
	v1 := b.BuildLoad(ptr, ir.TypeInt64, ir.LoadPure, -1, 0)
	v2 := b.BuildLoad(ptr, ir.TypeInt64, ir.LoadPure, -1, 0)
	sum := b.FoldAdd(v1, v2)
	b.BuildStore(out, sum, -2, 0)
	b.BuildExit()

	changed := ir.CommonSubexprElim(sec)
	require.True(t, changed)

	var loads int
	for inst := entry.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpLoad {
			loads++
		}
	}
	require.Equal(t, 1, loads)
}

func TestCommonSubexprElimInvalidatesAcrossStore(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	ptr := entry.AddParam(sec, ir.TypePtr)
	val := entry.AddParam(sec, ir.TypeInt64)
	out := entry.AddParam(sec, ir.TypePtr)

	b.MoveToEnd(entry)
	v1 := b.BuildLoad(ptr, ir.TypeInt64, ir.LoadPure, -1, 0)
	b.BuildStore(ptr, val, -1, 0)
	v2 := b.BuildLoad(ptr, ir.TypeInt64, ir.LoadPure, -1, 0)
	sum := b.FoldAdd(v1, v2)
	b.BuildStore(out, sum, -2, 0)
	b.BuildExit()

	ir.CommonSubexprElim(sec)

	var loads int
	for inst := entry.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpLoad {
			loads++
		}
	}
	require.Equal(t, 2, loads, "store to the same aliasing group must invalidate the cached load")
}
