package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/ir"
)

func TestRefineAliasingSharpensSamePointerToExactGroup(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	ptr := entry.AddParam(sec, ir.TypePtr)
	out := entry.AddParam(sec, ir.TypePtr)

	b.MoveToEnd(entry)
	v1 := b.BuildLoad(ptr, ir.TypeInt64, ir.LoadPure, 0, 0)
	v2 := b.BuildLoad(ptr, ir.TypeInt64, ir.LoadPure, 0, 8)
	sum := b.FoldAdd(v1, v2)
	b.BuildStore(out, sum, 0, 0)
	b.BuildExit()

	changed := ir.RefineAliasing(sec)
	require.True(t, changed)

	var loadAliasing []int64
	for inst := entry.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpLoad {
			loadAliasing = append(loadAliasing, inst.Aliasing())
		}
	}
	require.Len(t, loadAliasing, 2)
	require.True(t, loadAliasing[0] < 0, "refined aliasing must use the negative exact encoding")
	require.Equal(t, loadAliasing[0], loadAliasing[1], "both loads read the same pointer and must land in the same exact group")
}

func TestRefineAliasingLeavesDistinctPointersInCoarseGroups(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	p1 := entry.AddParam(sec, ir.TypePtr)
	p2 := entry.AddParam(sec, ir.TypePtr)
	out := entry.AddParam(sec, ir.TypePtr)

	b.MoveToEnd(entry)
	v1 := b.BuildLoad(p1, ir.TypeInt64, ir.LoadPure, 0, 0)
	v2 := b.BuildLoad(p2, ir.TypeInt64, ir.LoadPure, 0, 0)
	sum := b.FoldAdd(v1, v2)
	b.BuildStore(out, sum, 0, 0)
	b.BuildExit()

	ir.RefineAliasing(sec)

	var loadAliasing []int64
	for inst := entry.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpLoad {
			loadAliasing = append(loadAliasing, inst.Aliasing())
		}
	}
	require.Len(t, loadAliasing, 2)
	require.NotEqual(t, loadAliasing[0], loadAliasing[1], "loads from two distinct pointers must not share an exact group")
}
