package ir

// interval is a half-open byte range [start, end) used to test whether two
// differently-offset loads/stores in the same aliasing group could
// overlap. Grounded on original_source/jitir.tmpl.hpp's Interval struct.
type interval struct{ start, end uint64 }

func newInterval(offset uint64, typ Type) interval {
	return interval{start: offset, end: offset + uint64(typ.Size())}
}

func (a interval) intersects(b interval) bool {
	return a.start < b.end && b.start < a.end
}

// aliasOverlap reports whether a load could read a value written by a
// store/another load at (ptr, typ, aliasing, offset): different aliasing
// groups never alias; the same negative (exact) group always aliases;
// same non-negative group aliases only if the pointers are unequal
// (conservatively: true) or their byte ranges overlap. Grounded on
// original_source/jitir.tmpl.hpp's could_alias (TraceBuilder and
// CommonSubexprElim each have their own near-identical copy; this port
// shares one implementation between CommonSubexprElim and TraceBuilder).
func aliasOverlap(load *Instruction, ptr Value, typ Type, aliasing int64, offset uint64) bool {
	if load.Aliasing() != aliasing {
		return false
	}
	if aliasing < 0 {
		return true
	}
	if load.Arg() != ptr {
		return true
	}
	return newInterval(load.Offset(), load.Type()).intersects(newInterval(offset, typ))
}
