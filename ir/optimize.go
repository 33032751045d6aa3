package ir

// Optimize drives every analysis/transformation pass this package ships
// over sec, in the order a caller like cmd/mjitdump wants them run: loop
// passes first (the loop shape they depend on is stable before any of the
// other passes start moving instructions around), then Simplify/CSE/
// aliasing-refinement/dead-store-elim to a fixed point, then a final
// DeadCodeElim sweep to drop whatever the rest left unreferenced. Grounded
// on TestOptimizationPipelinePreservesSemantics's own Simplify-then-
// DeadCodeElim sequencing, generalized into a standing entrypoint rather
// than a test-local snippet.
func Optimize(sec *Section, maxIters int) {
	for _, blk := range sec.Blocks() {
		if l, ok := DiscoverLoop(blk); ok {
			LoopInvCodeMotion(sec, l)
			ChainLoopMem2Reg(sec, l)
		}
	}

	for i := 0; i < maxIters; i++ {
		changed := Simplify(sec, maxIters)
		changed = CommonSubexprElim(sec) || changed
		changed = RefineAliasing(sec) || changed
		changed = DeadStoreElim(sec) || changed
		if !changed {
			break
		}
	}

	DeadCodeElim(sec)
}
