// Package rob implements the reorder buffer: a ring of in-flight
// instructions that commits results to architectural state in program
// order regardless of the order they complete execution.
package rob

import "github.com/ZhaoCake/CakemuOoO/insts"

// Entry is one reorder-buffer slot.
type Entry struct {
	Busy      bool
	Dest      uint8
	Value     uint64
	Completed bool
	IsStore   bool
	MemAddr   uint64
	MemData   uint64
	PC        uint64
	Funct3    insts.Funct3
}

// Buffer is a fixed-capacity ring buffer of Entry.
type Buffer struct {
	entries        []Entry
	newlyCompleted []bool
	head           int
	tail           int
	count          int
}

// New returns a Buffer with the given capacity.
func New(size int) *Buffer {
	return &Buffer{
		entries:        make([]Entry, size),
		newlyCompleted: make([]bool, size),
	}
}

// IsFull reports whether the buffer holds as many entries as its capacity.
func (b *Buffer) IsFull() bool {
	return b.count == len(b.entries)
}

// IsEmpty reports whether the buffer holds no entries.
func (b *Buffer) IsEmpty() bool {
	return b.count == 0
}

// Allocate reserves the next tail slot and returns its index, or -1 if the
// buffer is full.
func (b *Buffer) Allocate(entry Entry) int {
	if b.IsFull() {
		return -1
	}

	index := b.tail
	b.tail = (b.tail + 1) % len(b.entries)
	b.count++

	entry.Busy = true
	entry.Completed = false
	b.entries[index] = entry
	b.newlyCompleted[index] = false

	return index
}

func (b *Buffer) inRange(index int) bool {
	return index >= 0 && index < len(b.entries)
}

// UpdateStoreEntry records the effective address and store data for a
// STORE entry and marks it completed. The actual memory write happens at
// commit time, not here.
func (b *Buffer) UpdateStoreEntry(index int, addr, data uint64) {
	if !b.inRange(index) {
		return
	}
	b.entries[index].MemAddr = addr
	b.entries[index].MemData = data
	b.entries[index].Completed = true
	b.newlyCompleted[index] = true
}

// CompleteEntry marks index completed with its computed result value.
func (b *Buffer) CompleteEntry(index int, value uint64) {
	if !b.inRange(index) {
		return
	}
	b.entries[index].Value = value
	b.entries[index].Completed = true
	b.newlyCompleted[index] = true
}

// CompleteBranchEntry marks a branch/jump entry completed with its link
// value. taken and target are accepted for symmetry with the execute-stage
// call site but do not change stored entry state — the core takes its
// fetch redirect from the execute-stage result, not from the ROB.
func (b *Buffer) CompleteBranchEntry(index int, value uint64, taken bool, target uint64) {
	b.CompleteEntry(index, value)
}

// IsEntryCompleted reports whether index holds a busy, completed entry.
func (b *Buffer) IsEntryCompleted(index int) bool {
	if !b.inRange(index) {
		return false
	}
	return b.entries[index].Busy && b.entries[index].Completed
}

// EntryValue returns the stored value at index, or 0 if out of range.
func (b *Buffer) EntryValue(index int) uint64 {
	if !b.inRange(index) {
		return 0
	}
	return b.entries[index].Value
}

// IsHeadCompleted reports whether the head entry is completed. It is
// false when the buffer is empty.
func (b *Buffer) IsHeadCompleted() bool {
	if b.IsEmpty() {
		return false
	}
	return b.entries[b.head].Completed
}

// HeadEntry returns a copy of the head entry. When the buffer is empty it
// returns a zero Entry with Busy false.
func (b *Buffer) HeadEntry() Entry {
	if b.IsEmpty() {
		return Entry{}
	}
	return b.entries[b.head]
}

// HeadIndex returns the current head slot index.
func (b *Buffer) HeadIndex() int {
	return b.head
}

// RemoveHead retires the head entry, advancing head and freeing the slot.
// It is a no-op when the buffer is empty.
func (b *Buffer) RemoveHead() {
	if b.IsEmpty() {
		return
	}
	b.entries[b.head].Busy = false
	b.newlyCompleted[b.head] = false
	b.head = (b.head + 1) % len(b.entries)
	b.count--
}

// NewlyCompletedEntry pairs a ROB index with the value it just produced,
// for CDB forwarding.
type NewlyCompletedEntry struct {
	Index int
	Value uint64
}

// NewlyCompleted returns every entry that completed since the last call
// and clears their newly-completed flags.
func (b *Buffer) NewlyCompleted() []NewlyCompletedEntry {
	var out []NewlyCompletedEntry
	for i := range b.entries {
		if b.entries[i].Busy && b.newlyCompleted[i] {
			out = append(out, NewlyCompletedEntry{Index: i, Value: b.entries[i].Value})
			b.newlyCompleted[i] = false
		}
	}
	return out
}

// Reset empties the buffer back to its initial state.
func (b *Buffer) Reset() {
	b.head = 0
	b.tail = 0
	b.count = 0
	for i := range b.entries {
		b.entries[i] = Entry{}
		b.newlyCompleted[i] = false
	}
}
