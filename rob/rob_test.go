package rob_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ZhaoCake/CakemuOoO/rob"
)

var _ = Describe("Buffer", func() {
	var b *rob.Buffer

	BeforeEach(func() {
		b = rob.New(4)
	})

	Describe("Allocate", func() {
		It("hands out increasing indices in ring order until full", func() {
			Expect(b.Allocate(rob.Entry{Dest: 1})).To(Equal(0))
			Expect(b.Allocate(rob.Entry{Dest: 2})).To(Equal(1))
			Expect(b.Allocate(rob.Entry{Dest: 3})).To(Equal(2))
			Expect(b.Allocate(rob.Entry{Dest: 4})).To(Equal(3))
			Expect(b.IsFull()).To(BeTrue())
			Expect(b.Allocate(rob.Entry{Dest: 5})).To(Equal(-1))
		})

		It("wraps the ring once entries are retired", func() {
			b.Allocate(rob.Entry{})
			b.Allocate(rob.Entry{})
			b.RemoveHead()
			b.RemoveHead()
			b.Allocate(rob.Entry{})
			b.Allocate(rob.Entry{})
			idx := b.Allocate(rob.Entry{Dest: 9})
			Expect(idx).To(Equal(0))
		})
	})

	Describe("CompleteEntry and IsEntryCompleted", func() {
		It("marks the entry completed with its value", func() {
			idx := b.Allocate(rob.Entry{Dest: 3})
			Expect(b.IsEntryCompleted(idx)).To(BeFalse())

			b.CompleteEntry(idx, 0xCAFE)
			Expect(b.IsEntryCompleted(idx)).To(BeTrue())
			Expect(b.EntryValue(idx)).To(Equal(uint64(0xCAFE)))
		})

		It("is false for an index out of range", func() {
			Expect(b.IsEntryCompleted(99)).To(BeFalse())
		})
	})

	Describe("UpdateStoreEntry", func() {
		It("records address and data and marks the entry completed", func() {
			idx := b.Allocate(rob.Entry{IsStore: true})
			b.UpdateStoreEntry(idx, 0x1000, 0x42)

			Expect(b.IsEntryCompleted(idx)).To(BeTrue())
		})
	})

	Describe("head tracking", func() {
		It("reports the head entry uncompleted until it completes", func() {
			b.Allocate(rob.Entry{Dest: 1})
			Expect(b.IsHeadCompleted()).To(BeFalse())

			b.CompleteEntry(b.HeadIndex(), 5)
			Expect(b.IsHeadCompleted()).To(BeTrue())
			Expect(b.HeadEntry().Value).To(Equal(uint64(5)))
		})

		It("returns a non-busy zero entry when empty", func() {
			Expect(b.HeadEntry().Busy).To(BeFalse())
			Expect(b.IsHeadCompleted()).To(BeFalse())
		})
	})

	Describe("RemoveHead", func() {
		It("advances the head and frees the slot for reuse", func() {
			b.Allocate(rob.Entry{Dest: 1})
			b.Allocate(rob.Entry{Dest: 2})
			b.RemoveHead()

			Expect(b.HeadEntry().Dest).To(Equal(uint8(2)))
			Expect(b.IsFull()).To(BeFalse())
		})

		It("is a no-op on an empty buffer", func() {
			Expect(func() { b.RemoveHead() }).NotTo(Panic())
		})
	})

	Describe("NewlyCompleted", func() {
		It("reports every entry completed since the last call, then clears", func() {
			i0 := b.Allocate(rob.Entry{})
			i1 := b.Allocate(rob.Entry{})
			b.CompleteEntry(i0, 1)
			b.CompleteEntry(i1, 2)

			completed := b.NewlyCompleted()
			Expect(completed).To(HaveLen(2))

			Expect(b.NewlyCompleted()).To(BeEmpty())
		})
	})

	Describe("Reset", func() {
		It("empties the buffer and clears completion flags", func() {
			b.Allocate(rob.Entry{})
			b.CompleteEntry(0, 7)
			b.Reset()

			Expect(b.IsEmpty()).To(BeTrue())
			Expect(b.NewlyCompleted()).To(BeEmpty())
		})
	})
})
