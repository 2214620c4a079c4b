// Package rs implements a reservation-station pool: a fixed-capacity arena
// of entries waiting for their operands to become available before they
// can be dispatched to execute.
package rs

import "github.com/ZhaoCake/CakemuOoO/insts"

// Entry is one reservation-station slot.
type Entry struct {
	Opcode insts.Opcode
	Funct3 insts.Funct3
	Funct7 uint8
	Rd     uint8
	Vj     uint64
	Vk     uint64
	Qj     uint32 // producing ROB tag, 0 if Vj is already available
	Qk     uint32 // producing ROB tag, 0 if Vk is already available
	Imm    int32
	PC     uint64
	Ready  bool
}

type slot struct {
	busy     bool
	entry    Entry
	robIndex int
}

// Pool is a fixed-capacity reservation-station pool.
type Pool struct {
	slots []slot
}

// New returns a Pool with the given capacity.
func New(size int) *Pool {
	return &Pool{slots: make([]slot, size)}
}

// IsFull reports whether every slot is occupied.
func (p *Pool) IsFull() bool {
	for i := range p.slots {
		if !p.slots[i].busy {
			return false
		}
	}
	return true
}

// Add places entry in the first free slot, tagged with robIndex. It
// reports false if the pool is full.
func (p *Pool) Add(entry Entry, robIndex int) bool {
	for i := range p.slots {
		if !p.slots[i].busy {
			p.slots[i] = slot{busy: true, entry: entry, robIndex: robIndex}
			return true
		}
	}
	return false
}

// Remove frees the slot holding robIndex. It reports false if no such
// slot was found.
func (p *Pool) Remove(robIndex int) bool {
	for i := range p.slots {
		if p.slots[i].busy && p.slots[i].robIndex == robIndex {
			p.slots[i] = slot{}
			return true
		}
	}
	return false
}

// ReadyEntry pairs a ready reservation-station entry with the ROB index
// it was issued against.
type ReadyEntry struct {
	Entry    Entry
	ROBIndex int
}

// ReadyEntries returns a snapshot of every busy, ready entry together with
// its ROB index.
func (p *Pool) ReadyEntries() []ReadyEntry {
	var ready []ReadyEntry
	for i := range p.slots {
		if p.slots[i].busy && p.slots[i].entry.Ready {
			ready = append(ready, ReadyEntry{Entry: p.slots[i].entry, ROBIndex: p.slots[i].robIndex})
		}
	}
	return ready
}

// Broadcast delivers a completed value over the tag, waking any waiting
// entry whose Qj or Qk matches. Tag 0 is the always-available sentinel and
// is never broadcast.
func (p *Pool) Broadcast(tag uint32, value uint64) {
	if tag == 0 {
		return
	}
	for i := range p.slots {
		if !p.slots[i].busy {
			continue
		}
		e := &p.slots[i].entry
		if e.Qj == tag {
			e.Vj = value
			e.Qj = 0
		}
		if e.Qk == tag {
			e.Vk = value
			e.Qk = 0
		}
		if e.Qj == 0 && e.Qk == 0 {
			e.Ready = true
		}
	}
}

// Reset clears every slot back to free.
func (p *Pool) Reset() {
	for i := range p.slots {
		p.slots[i] = slot{}
	}
}
