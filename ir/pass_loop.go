package ir

// DiscoverLoop recognizes the simplest natural-loop shape spec.md §4.4's
// Loop descriptor describes: header has exactly one backedge predecessor
// (the extent block, whose terminator jumps straight back to header with
// no intervening branches) and exactly one other predecessor (the
// preheader). This is a deliberate simplification relative to
// original_source/jitir.tmpl.hpp, which leaves loop discovery itself to the
// caller (Loop's constructor just takes header/extent directly, found by
// whatever CFG analysis surrounds it) -- a general irreducible-CFG loop
// finder is out of scope for this port, so only the single-backedge,
// single-preheader shape the worked examples in spec.md §8 actually produce
// is handled.
//
// Preheader and extent are told apart by BlockID, not by CFG shape alone:
// a preheader jumping straight to header looks identical, edge-locally, to
// a single-block loop body doing the same, so the tie is broken the same
// way isLoopInvariantValue breaks the analogous tie for values -- blocks
// are allocated in construction order, and every one of this IR's loops is
// built header-then-body, so the backedge predecessor always has a higher
// BlockID than header while the preheader always has a lower one.
func DiscoverLoop(header *Block) (*Loop, bool) {
	var preheader, extent *Block
	for i := 0; i < header.Preds(); i++ {
		pred := header.PredBlock(i)
		branch := header.PredBranch(i)
		if branch.Opcode() != OpJump || branch.Target() != header {
			return nil, false
		}
		if pred.ID() > header.ID() {
			if extent != nil || !isBackedgeCandidate(pred, header) {
				return nil, false
			}
			extent = pred
		} else {
			if preheader != nil {
				return nil, false
			}
			preheader = pred
		}
	}
	if preheader == nil || extent == nil {
		return nil, false
	}

	chain := NewChain()
	chain.Add(header)
	if extent != header {
		chain.Add(extent)
	}

	return &Loop{Header: header, Preheader: preheader, Extent: []*Block{extent}, Body: chain}, true
}

// isBackedgeCandidate reports whether pred could be the loop's extent
// block: its only successor is header (single-backedge, no internal
// branches out of the loop from this block).
func isBackedgeCandidate(pred, header *Block) bool {
	succs := pred.Succs()
	if len(succs) != 1 {
		return false
	}
	return succs[0] == header
}

func loopExtentBlock(l *Loop) *Block {
	if len(l.Extent) == 0 {
		return l.Header
	}
	return l.Extent[len(l.Extent)-1]
}

// isLoopInvariantValue reports whether v is defined outside the loop: a
// Const is always invariant, an Arg/Inst is invariant iff its ValueID
// predates every parameter and instruction result of the loop header,
// exploiting this IR's property that ValueIDs are assigned in construction
// order (ported from original_source's is_invariant, which compares
// inst->name() against loop->first_name()).
func isLoopInvariantValue(l *Loop, v Value) bool {
	if !v.IsNamed() {
		return true
	}
	first := valueIDInvalid
	for i := 0; i < l.Header.Params(); i++ {
		if id := l.Header.Param(i).ID(); id < first {
			first = id
		}
	}
	for inst := l.Header.Root(); inst != nil; inst = inst.Next() {
		if r := inst.Result(); r.Valid() && r.ID() < first {
			first = r.ID()
		}
	}
	return v.ID() < first
}

// LoopInvCodeMotion hoists every instruction in the loop body whose
// operands are all loop-invariant (and, for an in-bounds exact-aliasing
// load, whose aliasing group is never stored to inside the loop) into the
// preheader, immediately before its terminator. Stores, terminators, and
// comments never move. Grounded on
// original_source/jitir.tmpl.hpp's LoopInvCodeMotion class.
func LoopInvCodeMotion(sec *Section, l *Loop) bool {
	storedGroups := make(map[int64]bool)
	for _, blk := range l.Body.Blocks() {
		for inst := blk.Root(); inst != nil; inst = inst.Next() {
			if inst.opcode == OpStore && inst.aliasing < 0 {
				storedGroups[inst.aliasing] = true
			}
		}
	}

	invariant := make(map[*Instruction]bool)
	b := NewBuilder(sec)
	b.MoveBefore(l.Preheader.Terminator())

	changed := false
	for _, blk := range l.Body.Blocks() {
		for inst := blk.Root(); inst != nil; {
			next := inst.Next()

			if inst.opcode.HasSideEffect() || inst.opcode.IsTerminator() ||
				inst.opcode == OpStore || inst.opcode == OpComment {
				inst = next
				continue
			}

			isInv := true
			inst.ForEachArg(func(v Value) {
				if !isInv {
					return
				}
				if v.IsInst() {
					if prod, ok := sec.InstByValue(v); ok {
						if !isLoopInvariantValue(l, v) && !invariant[prod] {
							isInv = false
						}
						return
					}
				}
				if !isLoopInvariantValue(l, v) {
					isInv = false
				}
			})

			if isInv && inst.opcode == OpLoad {
				if inst.flags.Has(LoadInBounds) && inst.aliasing < 0 {
					if storedGroups[inst.aliasing] {
						isInv = false
					}
				} else {
					isInv = false
				}
			}

			if isInv {
				invariant[inst] = true
				blk.Unlink(inst)
				b.insert(inst)
				inst.unlinked = false
				changed = true
			}

			inst = next
		}
	}
	return changed
}

// ChainLoopMem2Reg promotes exact-aliasing, in-bounds loads whose pointer
// is loop-invariant into a value threaded through the loop header as a new
// block parameter: the initial load happens once in the preheader, every
// in-loop read of the same address becomes a reference to the header
// parameter (or to the most recent store's value within the same block),
// and the backedge jump supplies the loop-carried value for the next
// iteration. Grounded on
// original_source/jitir.tmpl.hpp's ChainLoopMem2Reg class.
func ChainLoopMem2Reg(sec *Section, l *Loop) {
	extent := loopExtentBlock(l)

	current := make(map[int64]Value)
	substs := make(map[Value]Value)

	var initial []Value
	var argGroups []int64

	b := NewBuilder(sec)
	b.MoveBefore(l.Preheader.Terminator())

	for _, blk := range l.Body.Blocks() {
		for inst := blk.Root(); inst != nil; {
			next := inst.Next()

			if rv, ok := substs[inst.v1]; ok {
				inst.v1 = rv
			}
			if rv, ok := substs[inst.v2]; ok {
				inst.v2 = rv
			}
			if rv, ok := substs[inst.v3]; ok {
				inst.v3 = rv
			}
			for idx, v := range inst.vs {
				if rv, ok := substs[v]; ok {
					inst.vs[idx] = rv
				}
			}

			switch {
			case inst.opcode == OpLoad && inst.aliasing < 0 && inst.flags.Has(LoadInBounds):
				group := inst.aliasing
				if _, ok := current[group]; !ok {
					if isLoopInvariantValue(l, inst.v1) {
						param := l.Header.AddParam(sec, inst.typ)
						blk.Unlink(inst)
						b.insert(inst)
						inst.unlinked = false
						initial = append(initial, inst.Result())
						argGroups = append(argGroups, group)
						current[group] = param
						substs[inst.Result()] = param
					} else {
						current[group] = inst.Result()
					}
				} else {
					blk.Unlink(inst)
					substs[inst.Result()] = current[group]
				}

			case inst.opcode == OpStore && inst.aliasing < 0:
				current[inst.aliasing] = inst.v2
			}

			inst = next
		}
	}

	preheaderJump := l.Preheader.Terminator()
	preheaderJump.vs = append(append([]Value(nil), preheaderJump.vs...), initial...)

	extentJump := extent.Terminator()
	backedgeArgs := make([]Value, len(argGroups))
	for i, g := range argGroups {
		backedgeArgs[i] = current[g]
	}
	extentJump.vs = append(append([]Value(nil), extentJump.vs...), backedgeArgs...)
}
