// Package arena implements a chunked bump allocator used by ir.Section to
// allocate blocks and instructions that all share one lifetime and are
// freed together.
//
// Grounded on original_source/jitir.tmpl.hpp's ArenaAllocator (1 MiB chunks,
// bump pointer with alignment padding, dealloc_all/Reset) and generalized
// with Go generics the way wazevoapi.Pool[T] is generic over node types in
// the teacher (internal/engine/wazevo/wazevoapi/pool.go).
package arena

import "unsafe"

const chunkSize = 1 << 20 // 1 MiB, matches the original's CHUNK_SIZE.

// Arena is a generic, chunked bump allocator for values of type T. It is not
// safe for concurrent use; callers (ir.Section, ir.Context) own one arena per
// compilation unit and never share it across goroutines.
type Arena[T any] struct {
	chunks  [][]T
	cur     int // index into chunks of the chunk currently being filled.
	curUsed int // number of elements used in chunks[cur].
}

// New returns an Arena ready for allocation.
func New[T any]() *Arena[T] {
	a := &Arena[T]{}
	a.chunks = append(a.chunks, make([]T, 0, perChunk[T]()))
	return a
}

func perChunk[T any]() int {
	var zero T
	sz := int(unsafe.Sizeof(zero))
	if sz <= 0 {
		sz = 1
	}
	n := chunkSize / sz
	if n < 16 {
		n = 16
	}
	return n
}

// Allocate returns a pointer to a fresh, zero-valued T that lives until the
// Arena is dropped. The returned pointer is stable: growing the arena never
// moves previously allocated elements, because each chunk is a fixed-size
// slice that is never reallocated.
func (a *Arena[T]) Allocate() *T {
	chunk := a.chunks[a.cur]
	if a.curUsed == cap(chunk) {
		a.chunks = append(a.chunks, make([]T, 0, perChunk[T]()))
		a.cur++
		a.curUsed = 0
		chunk = a.chunks[a.cur]
	}
	chunk = chunk[:a.curUsed+1]
	a.chunks[a.cur] = chunk
	ptr := &chunk[a.curUsed]
	a.curUsed++
	var zero T
	*ptr = zero
	return ptr
}

// Reset rewinds the arena to its first chunk without releasing the
// underlying memory, mirroring ArenaAllocator::dealloc_all. Previously
// returned pointers must not be used after Reset.
func (a *Arena[T]) Reset() {
	for i := range a.chunks {
		a.chunks[i] = a.chunks[i][:0]
	}
	a.cur = 0
	a.curUsed = 0
}

// Len returns the total number of live allocations in the arena.
func (a *Arena[T]) Len() int {
	n := 0
	for i := 0; i <= a.cur; i++ {
		n += len(a.chunks[i])
	}
	return n
}
