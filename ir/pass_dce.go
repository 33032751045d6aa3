package ir

// DeadCodeElim removes every instruction whose result is never (transitively)
// read by a side-effecting instruction, and assigns each surviving
// instruction a groupID partitioning the program into
// side-effect epochs. Grounded on
// ssa/pass.go's passDeadCodeEliminationOpt and passCollectValueIdToInstructionMapping
// (tetratelabs-wazero/internal/engine/wazevo/ssa/pass.go), adapted for this
// IR's richer SideEffectTraps/SideEffectStrict split (ssa only has a
// bool-like live/not-live side effect, this IR's div/mod must stay alive
// without forcing a new group the way a store does).
func DeadCodeElim(sec *Section) {
	var worklist []*Instruction
	var gid groupID

	for _, blk := range sec.Blocks() {
		for inst := blk.Root(); inst != nil; inst = inst.Next() {
			inst.group = gid
			switch inst.opcode.Effect() {
			case SideEffectTraps:
				worklist = append(worklist, inst)
			case SideEffectStrict:
				worklist = append(worklist, inst)
				gid++
			}
		}
	}

	live := make(map[*Instruction]bool, len(worklist)*2)
	for len(worklist) > 0 {
		n := len(worklist) - 1
		cur := worklist[n]
		worklist = worklist[:n]
		if live[cur] {
			continue
		}
		live[cur] = true
		cur.ForEachArg(func(v Value) {
			if producer, ok := sec.InstByValue(v); ok && !live[producer] {
				worklist = append(worklist, producer)
			}
		})
	}

	for _, blk := range sec.Blocks() {
		for inst := blk.Root(); inst != nil; {
			next := inst.Next()
			if !live[inst] {
				blk.Unlink(inst)
			}
			inst = next
		}
	}
}
