package ir

// Context owns the constant arena shared across Section(s), so that
// equal (type, value) constants built in different Sections compare as the
// same Value and can be freely aliased -- the "cross-section sharing of
// constants" REDESIGN FLAGS calls for. Grounded on
// original_source/jitir.tmpl.hpp's Context class (a separate
// ArenaAllocator just for Const/string payloads).
//
// A Context is not safe for concurrent use; building Sections from several
// goroutines against one Context is explicitly out of scope (spec.md §5).
type Context struct {
	byKey  map[constKey]ValueID
	values []uint64
	types  []Type
}

type constKey struct {
	typ Type
	val uint64
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{byKey: make(map[constKey]ValueID)}
}

// Const returns the (deduplicated) constant Value of type typ holding the
// low Mask() bits of val, allocating a fresh slot in the constant table on
// first use of this (type, masked value) pair.
func (c *Context) Const(typ Type, val uint64) Value {
	if !typ.valid() || typ == TypeVoid {
		panic("BUG: invalid constant type")
	}
	val &= typ.Mask()
	key := constKey{typ, val}
	if id, ok := c.byKey[key]; ok {
		return newValue(valueKindConst, typ, id)
	}
	id := ValueID(len(c.values))
	c.values = append(c.values, val)
	c.types = append(c.types, typ)
	c.byKey[key] = id
	return newValue(valueKindConst, typ, id)
}

// ConstValue returns the raw 64-bit payload of a constant Value. Panics if v
// is not a Const.
func (c *Context) ConstValue(v Value) uint64 {
	if !v.IsConst() {
		panic("BUG: ConstValue on a non-constant Value")
	}
	return c.values[v.ID()]
}

// ConstCount returns the number of distinct constants allocated so far.
func (c *Context) ConstCount() int { return len(c.values) }

// ConstAt returns the (type, value) pair for constant table slot id --
// used by printers/parsers that enumerate the whole constant table rather
// than reach one entry via an existing Value reference.
func (c *Context) ConstAt(id ValueID) (Type, uint64) { return c.types[id], c.values[id] }

// ConstBool is a convenience for building Bool constants.
func (c *Context) ConstBool(b bool) Value {
	if b {
		return c.Const(TypeBool, 1)
	}
	return c.Const(TypeBool, 0)
}
