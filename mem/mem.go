// Package mem implements the core's flat byte-addressed memory image: one
// contiguous array, little-endian instruction and data access, loaded once
// from a program file at offset 0.
package mem

import (
	"github.com/ZhaoCake/CakemuOoO/diag"
)

// DefaultSize is the default memory image size: 1 MiB.
const DefaultSize = 1 << 20

// Image is a flat, byte-addressed memory. Out-of-range accesses never
// panic: reads return 0, writes are dropped, and both emit a diagnostic.
type Image struct {
	bytes []byte
	sink  diag.Sink
}

// Option configures an Image at construction time.
type Option func(*Image)

// WithSize overrides the default 1 MiB image size.
func WithSize(size int) Option {
	return func(img *Image) {
		img.bytes = make([]byte, size)
	}
}

// WithSink overrides the default stderr diagnostic sink.
func WithSink(sink diag.Sink) Option {
	return func(img *Image) {
		img.sink = sink
	}
}

// New creates a zeroed memory image of DefaultSize bytes unless overridden
// by WithSize.
func New(opts ...Option) *Image {
	img := &Image{
		bytes: make([]byte, DefaultSize),
		sink:  diag.Stderr,
	}
	for _, opt := range opts {
		opt(img)
	}
	return img
}

// Size returns the image's capacity in bytes.
func (img *Image) Size() int {
	return len(img.bytes)
}

// Bytes exposes the backing array for the loader to fill directly.
func (img *Image) Bytes() []byte {
	return img.bytes
}

// ReadInstruction reads a 32-bit little-endian instruction word at addr.
func (img *Image) ReadInstruction(addr uint64) uint32 {
	if !img.inRange(addr, 4) {
		img.sink.Logf("memory error: instruction read out of bounds at address 0x%x", addr)
		return 0
	}
	b := img.bytes
	return uint32(b[addr]) | uint32(b[addr+1])<<8 | uint32(b[addr+2])<<16 | uint32(b[addr+3])<<24
}

// ReadData reads size (1, 2, or 4) bytes at addr, little-endian, returning
// a zero-extended 64-bit value.
func (img *Image) ReadData(addr uint64, size uint8) uint64 {
	if !img.inRange(addr, size) {
		img.sink.Logf("memory error: data read out of bounds at address 0x%x", addr)
		return 0
	}
	var data uint64
	for i := uint8(0); i < size; i++ {
		data |= uint64(img.bytes[addr+uint64(i)]) << (i * 8)
	}
	return data
}

// WriteData writes the low size bytes of value to addr, little-endian.
func (img *Image) WriteData(addr uint64, value uint64, size uint8) {
	if !img.inRange(addr, size) {
		img.sink.Logf("memory error: data write out of bounds at address 0x%x", addr)
		return
	}
	for i := uint8(0); i < size; i++ {
		img.bytes[addr+uint64(i)] = byte(value >> (i * 8))
	}
}

func (img *Image) inRange(addr uint64, size uint8) bool {
	if size == 0 {
		return addr < uint64(len(img.bytes))
	}
	end := addr + uint64(size)
	return end <= uint64(len(img.bytes)) && end >= addr
}
