//go:build linux

package amd64

import (
	"fmt"
	"syscall"
	"unsafe"
)

// Deployment owns one mmap'd region of executable machine code. Grounded
// on X86CodeGen::deploy, which mmaps an anonymous RW page, copies the
// encoded bytes in, then mprotects the page to RX.
type Deployment struct {
	mem  []byte
	code uintptr
}

// Deploy mmaps an anonymous page-aligned RW region, copies code into it,
// then mprotects it to RX, returning a Deployment whose Call method jumps
// into it. Returns an error rather than aborting the process on an mmap/
// mprotect failure (a library must leave that decision to its caller).
func Deploy(code []byte) (*Deployment, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("amd64: Deploy: empty code")
	}
	mem, err := syscall.Mmap(-1, 0, len(code),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_PRIVATE|syscall.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("amd64: Deploy: mmap: %w", err)
	}
	copy(mem, code)
	if err := syscall.Mprotect(mem, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		_ = syscall.Munmap(mem)
		return nil, fmt.Errorf("amd64: Deploy: mprotect: %w", err)
	}
	return &Deployment{mem: mem, code: uintptr(unsafe.Pointer(&mem[0]))}, nil
}

// Call jumps into the deployed code with args loaded into the System V
// AMD64 integer argument registers (RDI, RSI, RDX, RCX, R8, R9, in that
// order -- this port supports at most 6 entry arguments, matching
// entryArgRegs) and returns whatever the code left in RAX. Grounded on the
// teacher's own split between a Go-level call site and an assembly
// entrypoint (internal/engine/wazevo/entrypoint_arm64.go's
// `//go:linkname entrypoint ...backend/isa/arm64.entrypoint`) -- this port
// keeps the entrypoint in its own package (entrypoint_amd64.s) instead of
// linknaming across packages, since there is exactly one backend here.
func (d *Deployment) Call(args ...int64) int64 {
	if len(args) > len(entryArgRegs) {
		panic("BUG: more call arguments than this port's fixed-register contract supports")
	}
	var buf [6]int64
	copy(buf[:], args)
	return entrypoint(d.code, &buf[0], len(args))
}

// Release unmaps the deployed region. The caller must not call Call again
// afterward.
func (d *Deployment) Release() error {
	return syscall.Munmap(d.mem)
}

//go:noescape
func entrypoint(code uintptr, args *int64, nargs int) int64
