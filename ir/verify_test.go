package ir_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/ir"
)

func TestVerifyAcceptsWellFormedSection(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	n := entry.AddParam(sec, ir.TypeInt64)
	b.MoveToEnd(entry)
	doubled := b.FoldAdd(n, n)
	_ = doubled
	b.BuildExit()

	var errs bytes.Buffer
	require.False(t, ir.Verify(sec, &errs))
	require.Empty(t, errs.String())
}

func TestVerifyRejectsMissingTerminator(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	n := entry.AddParam(sec, ir.TypeInt64)
	b.MoveToEnd(entry)
	_ = b.FoldAdd(n, n)
	// deliberately no terminator.

	var errs bytes.Buffer
	require.True(t, ir.Verify(sec, &errs))
	require.Contains(t, errs.String(), "no terminator")
}

func TestVerifyRejectsJumpArityMismatch(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	target := b.BuildBlock()
	target.AddParam(sec, ir.TypeInt64)

	b.MoveToEnd(entry)
	b.BuildJump(target) // missing the one required argument

	b.MoveToEnd(target)
	b.BuildExit()

	var errs bytes.Buffer
	require.True(t, ir.Verify(sec, &errs))
	require.Contains(t, errs.String(), "requires 1 arguments, but 0 were provided")
}

func TestVerifyRejectsUseBeforeDef(t *testing.T) {
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	ptr := entry.AddParam(sec, ir.TypePtr)

	// A later block's parameter is not yet in scope when entry's
	// instructions run, so storing it from entry must be rejected.
	later := b.BuildBlock()
	lv := later.AddParam(sec, ir.TypeInt64)
	b.MoveToEnd(later)
	b.BuildExit()

	b.MoveToEnd(entry)
	b.BuildStore(ptr, lv, -1, 0)
	b.BuildExit()

	var errs bytes.Buffer
	require.True(t, ir.Verify(sec, &errs))
	require.Contains(t, errs.String(), "uses undefined value")
}
