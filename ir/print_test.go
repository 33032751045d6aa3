package ir_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjit-project/mjit/ir"
)

func buildSimpleAddSection(t *testing.T) *ir.Section {
	t.Helper()
	ctx := ir.NewContext()
	sec := ir.NewSection(ctx)
	b := ir.NewBuilder(sec)

	entry := b.BuildBlock()
	n := entry.AddParam(sec, ir.TypeInt64)
	b.MoveToEnd(entry)
	b.BuildComment("doubling n")
	sum := b.BuildAdd(n, n)
	_ = sum
	b.BuildExit()
	return sec
}

func TestWriteTextShapesBlockAndInstructions(t *testing.T) {
	sec := buildSimpleAddSection(t)
	text := ir.WriteText(sec, nil)

	require.Contains(t, text, "section {")
	require.Contains(t, text, "b0(")
	require.Contains(t, text, "add")
	require.Contains(t, text, "exit")
	require.Contains(t, text, `"doubling n"`)
}

func TestWriteTextAttachesInfoComment(t *testing.T) {
	sec := buildSimpleAddSection(t)
	text := ir.WriteText(sec, func(inst *ir.Instruction) string {
		if inst.Opcode() == ir.OpAdd {
			return "known-bits: top 0"
		}
		return ""
	})
	require.True(t, strings.Contains(text, "# known-bits: top 0"))
}

func TestWriteJSONRoundTripsStructure(t *testing.T) {
	sec := buildSimpleAddSection(t)
	data, err := ir.WriteJSON(sec, nil)
	require.NoError(t, err)

	var doc struct {
		Blocks []struct {
			Name  string `json:"name"`
			Insts []struct {
				Op string `json:"op"`
			} `json:"insts"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Blocks, 1)
	require.Equal(t, "b0", doc.Blocks[0].Name)

	var ops []string
	for _, inst := range doc.Blocks[0].Insts {
		ops = append(ops, inst.Op)
	}
	require.Equal(t, []string{"comment", "add", "exit"}, ops)
}
