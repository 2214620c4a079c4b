package rs_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ZhaoCake/CakemuOoO/rs"
)

var _ = Describe("Pool", func() {
	var p *rs.Pool

	BeforeEach(func() {
		p = rs.New(2)
	})

	Describe("IsFull", func() {
		It("is false for an empty pool and true once every slot holds an entry", func() {
			Expect(p.IsFull()).To(BeFalse())
			Expect(p.Add(rs.Entry{Ready: true}, 0)).To(BeTrue())
			Expect(p.IsFull()).To(BeFalse())
			Expect(p.Add(rs.Entry{Ready: true}, 1)).To(BeTrue())
			Expect(p.IsFull()).To(BeTrue())
		})
	})

	Describe("Add", func() {
		It("refuses a new entry once full", func() {
			Expect(p.Add(rs.Entry{}, 0)).To(BeTrue())
			Expect(p.Add(rs.Entry{}, 1)).To(BeTrue())
			Expect(p.Add(rs.Entry{}, 2)).To(BeFalse())
		})
	})

	Describe("Remove", func() {
		It("frees the slot tagged with the given ROB index", func() {
			p.Add(rs.Entry{}, 5)
			Expect(p.Remove(5)).To(BeTrue())
			Expect(p.IsFull()).To(BeFalse())
			Expect(p.Add(rs.Entry{}, 9)).To(BeTrue())
		})

		It("reports false when no slot holds the given ROB index", func() {
			Expect(p.Remove(42)).To(BeFalse())
		})
	})

	Describe("ReadyEntries", func() {
		It("only returns busy entries marked ready", func() {
			p.Add(rs.Entry{Ready: false}, 0)
			p.Add(rs.Entry{Ready: true}, 1)

			ready := p.ReadyEntries()
			Expect(ready).To(HaveLen(1))
			Expect(ready[0].ROBIndex).To(Equal(1))
		})
	})

	Describe("Broadcast", func() {
		It("resolves a matching Qj and marks the entry ready once both operands arrive", func() {
			p.Add(rs.Entry{Qj: 3, Qk: 0, Ready: false}, 0)
			p.Broadcast(3, 0xAB)

			ready := p.ReadyEntries()
			Expect(ready).To(HaveLen(1))
			Expect(ready[0].Entry.Vj).To(Equal(uint64(0xAB)))
			Expect(ready[0].Entry.Qj).To(Equal(uint32(0)))
		})

		It("leaves an entry not-ready while Qk is still outstanding", func() {
			p.Add(rs.Entry{Qj: 3, Qk: 4, Ready: false}, 0)
			p.Broadcast(3, 0xAB)

			Expect(p.ReadyEntries()).To(BeEmpty())
		})

		It("ignores tag 0, the always-available sentinel", func() {
			p.Add(rs.Entry{Qj: 0, Qk: 0, Ready: true}, 0)
			Expect(func() { p.Broadcast(0, 1) }).NotTo(Panic())
			Expect(p.ReadyEntries()).To(HaveLen(1))
		})
	})

	Describe("Reset", func() {
		It("frees every slot", func() {
			p.Add(rs.Entry{}, 0)
			p.Add(rs.Entry{}, 1)
			p.Reset()
			Expect(p.IsFull()).To(BeFalse())
			Expect(p.Add(rs.Entry{}, 0)).To(BeTrue())
		})
	})
})
