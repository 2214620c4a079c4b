package regfile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ZhaoCake/CakemuOoO/regfile"
)

var _ = Describe("File", func() {
	var f *regfile.File

	BeforeEach(func() {
		f = regfile.New()
	})

	It("initializes every register to 0", func() {
		for r := uint8(0); r < 32; r++ {
			Expect(f.Read(r)).To(Equal(uint64(0)))
		}
	})

	It("reads back a written value", func() {
		f.Write(5, 0xDEADBEEF)
		Expect(f.Read(5)).To(Equal(uint64(0xDEADBEEF)))
	})

	Describe("x0", func() {
		It("always reads 0 even after a write", func() {
			f.Write(0, 5)
			Expect(f.Read(0)).To(Equal(uint64(0)))
		})
	})

	Describe("out-of-range access", func() {
		It("reads 0 for an index beyond 31", func() {
			Expect(f.Read(32)).To(Equal(uint64(0)))
		})

		It("ignores a write to an index beyond 31", func() {
			Expect(func() { f.Write(200, 1) }).NotTo(Panic())
		})
	})

	Describe("Reset", func() {
		It("clears all registers back to 0", func() {
			f.Write(3, 99)
			f.Reset()
			Expect(f.Read(3)).To(Equal(uint64(0)))
		})
	})
})
