package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/ir"
)

func storeCount(blk *ir.Block) int {
	n := 0
	for inst := blk.Root(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == ir.OpStore {
			n++
		}
	}
	return n
}

func TestDeadStoreElimRemovesOverwrittenStore(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	ptr := entry.AddParam(sec, ir.TypePtr)
	v1 := entry.AddParam(sec, ir.TypeInt64)
	v2 := entry.AddParam(sec, ir.TypeInt64)

	b.MoveToEnd(entry)
	b.BuildStore(ptr, v1, -1, 0)
	b.BuildStore(ptr, v2, -1, 0)
	b.BuildExit()

	changed := ir.DeadStoreElim(sec)
	require.True(t, changed)
	require.Equal(t, 1, storeCount(entry))
}

func TestDeadStoreElimKeepsStoreObservedByLoad(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	ptr := entry.AddParam(sec, ir.TypePtr)
	v1 := entry.AddParam(sec, ir.TypeInt64)
	v2 := entry.AddParam(sec, ir.TypeInt64)
	out := entry.AddParam(sec, ir.TypePtr)

	b.MoveToEnd(entry)
	b.BuildStore(ptr, v1, -1, 0)
	loaded := b.BuildLoad(ptr, ir.TypeInt64, 0, -1, 0)
	b.BuildStore(ptr, v2, -1, 0)
	b.BuildStore(out, loaded, -2, 0)
	b.BuildExit()

	ir.DeadStoreElim(sec)
	require.Equal(t, 3, storeCount(entry), "the first store is observed by the load and must survive")
}
