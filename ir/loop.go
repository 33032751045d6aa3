package ir

// Chain is an ordered sequence of blocks forming an extended basic block
// (a straight-line trace through the CFG), used by LoopInvCodeMotion and
// ChainLoopMem2Reg to reason about a loop body as a unit rather than
// block-by-block. Grounded on original_source/jitir.tmpl.hpp's Chain class;
// wazero's ssa package has no equivalent at the IR layer (it tracks loops
// only transiently inside its own passes), so this type has no teacher
// analogue to adapt.
type Chain struct {
	blocks []*Block
}

// NewChain returns an empty Chain.
func NewChain() *Chain { return &Chain{} }

// Add appends b to the end of the chain. TraceBuilder.BuildBlock calls this
// automatically for every block built while a Chain is attached.
func (c *Chain) Add(b *Block) { c.blocks = append(c.blocks, b) }

// Blocks returns the chain's blocks in the order they were added.
func (c *Chain) Blocks() []*Block { return c.blocks }

// Len returns the number of blocks in the chain.
func (c *Chain) Len() int { return len(c.blocks) }

// Loop describes one natural loop discovered in a Section: its header (the
// single block all back edges target), the preheader synthesized so
// loop-invariant code has somewhere to live above the loop, and the full set
// of blocks inside it. Grounded on spec.md §4.4's description of
// LoopInvCodeMotion/ChainLoopMem2Reg operating over "a loop descriptor
// (header, extent, preheader, chain)".
type Loop struct {
	Header    *Block
	Preheader *Block
	Extent    []*Block
	Body      *Chain
}

// Contains reports whether b is one of the loop's Extent blocks.
func (l *Loop) Contains(b *Block) bool {
	for _, e := range l.Extent {
		if e == b {
			return true
		}
	}
	return false
}
