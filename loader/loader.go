// Package loader loads a flat RV32I program binary into memory.
package loader

import (
	"os"

	"github.com/ZhaoCake/CakemuOoO/diag"
	"github.com/ZhaoCake/CakemuOoO/mem"
)

// Load reads the program file at path directly into img starting at
// address 0. A file shorter than the image leaves the remainder
// zeroed; a file longer than the image is truncated to capacity. A
// missing file is logged through sink and leaves img untouched (it is
// already zeroed by mem.New), matching the original loader's
// fail-soft behavior rather than aborting the run.
func Load(path string, img *mem.Image, sink diag.Sink) error {
	data, err := os.ReadFile(path)
	if err != nil {
		sink.Logf("could not open program file %s: %v", path, err)
		return nil
	}

	dst := img.Bytes()
	n := copy(dst, data)

	sink.Logf("loaded %d bytes from %s", n, path)
	return nil
}
