package quickjsbridge

import "context"

// Memory is the guest linear memory as seen by the boundary codec.
// Implementations must re-derive their backing slice after growth.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of guest linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator reserves guest memory through the guest's own allocator.
// Blocks are reclaimed by the guest; the host never frees them.
type Allocator interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
}
