// Package interp provides a concrete-valued Section evaluator, used to
// check an IR transform or a compiled backend's output against the
// reference semantics of the IR itself.
package interp

// Memory is a sparse, byte-addressable address space backing the
// Interpreter's Load/Store instructions. Grounded on
// original_source/jitir.tmpl.hpp's Interpreter::step, which dereferences a
// Bits pointer value as a raw uint8_t* into the host process's address
// space; this port can't do that safely, so addresses instead index a map
// of bytes, a simplification recorded in DESIGN.md.
type Memory struct {
	bytes map[uint64]byte
}

// NewMemory returns an empty address space.
func NewMemory() *Memory { return &Memory{bytes: make(map[uint64]byte)} }

// WriteBytes seeds addr with the given bytes, for installing input buffers
// before interpretation begins.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	for i, b := range data {
		m.bytes[addr+uint64(i)] = b
	}
}

// ReadBytes returns size bytes starting at addr, least-significant byte
// first.
func (m *Memory) ReadBytes(addr uint64, size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = m.bytes[addr+uint64(i)]
	}
	return out
}

// Read returns the size-byte little-endian value at addr, zero-extended to
// 64 bits.
func (m *Memory) Read(addr uint64, size byte) uint64 {
	var v uint64
	for i := byte(0); i < size; i++ {
		v |= uint64(m.bytes[addr+uint64(i)]) << (8 * i)
	}
	return v
}

// Write stores the low size bytes of value at addr, little-endian.
func (m *Memory) Write(addr uint64, size byte, value uint64) {
	for i := byte(0); i < size; i++ {
		m.bytes[addr+uint64(i)] = byte(value >> (8 * i))
	}
}
