// Package engine wires memory, the register file, the branch predictor,
// the decoder, the reservation-station pools, and the reorder buffer into
// a single cycle-driven core.
package engine

import (
	"github.com/ZhaoCake/CakemuOoO/branchpred"
	"github.com/ZhaoCake/CakemuOoO/diag"
	"github.com/ZhaoCake/CakemuOoO/insts"
	"github.com/ZhaoCake/CakemuOoO/mem"
	"github.com/ZhaoCake/CakemuOoO/regfile"
	"github.com/ZhaoCake/CakemuOoO/rob"
	"github.com/ZhaoCake/CakemuOoO/rs"
)

// Default reservation-station and reorder-buffer capacities, matching the
// reference core's fixed allocation.
const (
	DefaultROBSize      = 16
	DefaultRSALUSize    = 8
	DefaultRSMemSize    = 4
	DefaultRSBranchSize = 2
	DefaultMemSize      = mem.DefaultSize
)

type config struct {
	memSize      int
	robSize      int
	rsALUSize    int
	rsMemSize    int
	rsBranchSize int
	predictor    branchpred.Config
	sink         diag.Sink
}

func defaultConfig() config {
	return config{
		memSize:      DefaultMemSize,
		robSize:      DefaultROBSize,
		rsALUSize:    DefaultRSALUSize,
		rsMemSize:    DefaultRSMemSize,
		rsBranchSize: DefaultRSBranchSize,
		predictor:    branchpred.DefaultConfig(),
		sink:         diag.Stderr,
	}
}

// CoreOption configures a Core at construction time.
type CoreOption func(*config)

// WithMemSize overrides the memory image capacity.
func WithMemSize(size int) CoreOption {
	return func(c *config) { c.memSize = size }
}

// WithROBSize overrides the reorder-buffer capacity.
func WithROBSize(size int) CoreOption {
	return func(c *config) { c.robSize = size }
}

// WithRSSizes overrides the three reservation-station pool capacities.
func WithRSSizes(alu, memPool, branch int) CoreOption {
	return func(c *config) {
		c.rsALUSize = alu
		c.rsMemSize = memPool
		c.rsBranchSize = branch
	}
}

// WithPredictor selects the branch predictor scheme.
func WithPredictor(cfg branchpred.Config) CoreOption {
	return func(c *config) { c.predictor = cfg }
}

// WithSink overrides where diagnostics (out-of-range memory access, etc.)
// are reported.
func WithSink(sink diag.Sink) CoreOption {
	return func(c *config) { c.sink = sink }
}

type regStatus struct {
	busy     bool
	robEntry int
}

type instMeta struct {
	opcode insts.Opcode
	typ    insts.Type
}

// Core is the Tomasulo-style out-of-order RV32I core.
type Core struct {
	mem       *mem.Image
	regs      *regfile.File
	predictor *branchpred.Predictor
	robBuf    *rob.Buffer
	rsALU     *rs.Pool
	rsMem     *rs.Pool
	rsBranch  *rs.Pool
	sink      diag.Sink

	regStatus [32]regStatus
	meta      []instMeta

	pc uint64

	pending    insts.DecodePacket
	hasPending bool

	redirectPending bool
	redirectTarget  uint64

	cycles    uint64
	committed uint64
}

// New builds a Core from the given options.
func New(opts ...CoreOption) *Core {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Core{
		mem:       mem.New(mem.WithSize(cfg.memSize), mem.WithSink(cfg.sink)),
		regs:      regfile.New(),
		predictor: branchpred.New(cfg.predictor),
		robBuf:    rob.New(cfg.robSize),
		rsALU:     rs.New(cfg.rsALUSize),
		rsMem:     rs.New(cfg.rsMemSize),
		rsBranch:  rs.New(cfg.rsBranchSize),
		sink:      cfg.sink,
		meta:      make([]instMeta, cfg.robSize),
	}
}

// Memory returns the core's memory image, for use by a loader.
func (c *Core) Memory() *mem.Image { return c.mem }

// Regfile returns the core's architectural register file.
func (c *Core) Regfile() *regfile.File { return c.regs }

// Predictor returns the core's branch predictor, for reading accuracy
// statistics after a run.
func (c *Core) Predictor() *branchpred.Predictor { return c.predictor }

// PC returns the current fetch program counter.
func (c *Core) PC() uint64 { return c.pc }

// SetPC sets the fetch program counter, as on reset.
func (c *Core) SetPC(pc uint64) {
	c.pc = pc
	c.hasPending = false
	c.redirectPending = false
}

// Cycles returns the number of ticks executed so far.
func (c *Core) Cycles() uint64 { return c.cycles }

// CommittedInstructions returns the number of instructions retired so far.
func (c *Core) CommittedInstructions() uint64 { return c.committed }

// FetchEvent describes the instruction word fetched during a tick.
type FetchEvent struct {
	PC          uint64
	Instruction uint32
	Valid       bool
}

// DecodeEvent describes the instruction decoded during a tick. It mirrors
// whatever FetchEvent produced this tick, or the retried back-pressured
// packet from a prior tick.
type DecodeEvent struct {
	PC          uint64
	Instruction uint32
	Opcode      insts.Opcode
	Type        insts.Type
	Valid       bool
	Issued      bool
}

// CommitEvent describes one instruction retired during a tick.
type CommitEvent struct {
	PC       uint64
	Opcode   insts.Opcode
	Type     insts.Type
	Rd       uint8
	Value    uint64
	IsStore  bool
	MemAddr  uint64
	MemSize  uint8
	MemWrite bool
}

// BranchEvent describes a branch or jump resolved during a tick.
type BranchEvent struct {
	PC     uint64
	Opcode insts.Opcode
	Taken  bool
	Target uint64
}

// TickResult reports everything observable about one tick, for a
// performance analyzer or CLI driver to record.
type TickResult struct {
	Fetch   FetchEvent
	Decode  DecodeEvent
	Commits []CommitEvent
	Branch  *BranchEvent
}

func storeSize(f3 insts.Funct3) uint8 {
	switch f3 {
	case insts.F3SB:
		return 1
	case insts.F3SH:
		return 2
	default:
		return 4
	}
}

func loadSize(f3 insts.Funct3) uint8 {
	switch f3 {
	case insts.F3LB, insts.F3LBU:
		return 1
	case insts.F3LH, insts.F3LHU:
		return 2
	default:
		return 4
	}
}

func usesRs1(t insts.Type) bool {
	return t != insts.TypeU && t != insts.TypeJ
}

func usesRs2(t insts.Type) bool {
	return t == insts.TypeR || t == insts.TypeS || t == insts.TypeB
}

func writesRegister(op insts.Opcode) bool {
	return op != insts.OpSTORE && op != insts.OpBRANCH
}

func poolFor(op insts.Opcode) int {
	switch op {
	case insts.OpLOAD, insts.OpSTORE:
		return poolMem
	case insts.OpBRANCH, insts.OpJAL, insts.OpJALR:
		return poolBranch
	default:
		return poolALU
	}
}

const (
	poolALU = iota
	poolMem
	poolBranch
)

func (c *Core) pool(kind int) *rs.Pool {
	switch kind {
	case poolMem:
		return c.rsMem
	case poolBranch:
		return c.rsBranch
	default:
		return c.rsALU
	}
}

func (c *Core) predictNextPC(pc uint64, dp insts.DecodePacket) uint64 {
	if !insts.IsBranchOrJump(dp.Opcode) {
		return pc + 4
	}
	taken := c.predictor.Predict(pc, dp.Opcode, dp.Imm)
	if !taken {
		return pc + 4
	}
	switch dp.Opcode {
	case insts.OpJAL, insts.OpBRANCH:
		return uint64(int64(pc) + int64(dp.Imm))
	default: // JALR: target unknown until Vj is read
		return pc + 4
	}
}

// Tick advances the core by one cycle, running fetch/decode (when no
// back-pressured instruction is pending), then issue, execute, complete,
// and commit in that order on shared state.
//
// Execute's ready-entry snapshot is taken before issue runs, so an entry
// issue adds this tick is never a candidate for dispatch until the next
// tick: issuing and dispatching in the same cycle would let an
// independent instruction retire before the cycle that fetched it even
// finishes, collapsing the pipeline's latency to zero.
func (c *Core) Tick() TickResult {
	c.cycles++

	var result TickResult

	if !c.hasPending {
		if c.redirectPending {
			c.pc = c.redirectTarget
			c.redirectPending = false
		}

		word := c.mem.ReadInstruction(c.pc)
		dp := insts.Decode(word, c.pc)

		result.Fetch = FetchEvent{PC: c.pc, Instruction: word, Valid: true}
		result.Decode = DecodeEvent{PC: c.pc, Instruction: word, Opcode: dp.Opcode, Type: dp.Type, Valid: true}

		c.pc = c.predictNextPC(c.pc, dp)

		c.pending = dp
		c.hasPending = true
	} else {
		dp := c.pending
		result.Decode = DecodeEvent{PC: dp.PC, Instruction: dp.Instruction, Opcode: dp.Opcode, Type: dp.Type, Valid: true}
	}

	aluReady := c.rsALU.ReadyEntries()
	memReady := c.rsMem.ReadyEntries()
	branchReady := c.rsBranch.ReadyEntries()

	issued := c.issue()
	result.Decode.Issued = issued
	if issued {
		c.hasPending = false
	}

	branchEvent := c.execute(aluReady, memReady, branchReady)
	result.Branch = branchEvent

	c.complete()

	result.Commits = c.commit()
	c.committed += uint64(len(result.Commits))

	return result
}

// issue attempts to admit the pending decode packet into the ROB and its
// target reservation-station pool. It returns false (back-pressure)
// without mutating any shared state when the packet cannot be admitted.
func (c *Core) issue() bool {
	dp := c.pending

	if c.robBuf.IsFull() {
		return false
	}

	kind := poolFor(dp.Opcode)
	pool := c.pool(kind)
	if pool.IsFull() {
		return false
	}

	robIndex := c.robBuf.Allocate(rob.Entry{
		Dest:    dp.Rd,
		IsStore: dp.Opcode == insts.OpSTORE,
		PC:      dp.PC,
		Funct3:  dp.Funct3,
	})
	if robIndex < 0 {
		return false
	}
	c.meta[robIndex] = instMeta{opcode: dp.Opcode, typ: dp.Type}

	entry := rs.Entry{
		Opcode: dp.Opcode,
		Funct3: dp.Funct3,
		Funct7: dp.Funct7,
		Rd:     dp.Rd,
		Imm:    dp.Imm,
		PC:     dp.PC,
		Ready:  true,
	}

	if usesRs1(dp.Type) && dp.Rs1 != 0 {
		c.resolveOperand(dp.Rs1, &entry.Vj, &entry.Qj, &entry.Ready)
	}

	if usesRs2(dp.Type) && dp.Rs2 != 0 {
		c.resolveOperand(dp.Rs2, &entry.Vk, &entry.Qk, &entry.Ready)
	}

	pool.Add(entry, robIndex)

	if dp.Rd != 0 && writesRegister(dp.Opcode) {
		c.regStatus[dp.Rd] = regStatus{busy: true, robEntry: robIndex}
	}

	return true
}

// resolveOperand fills v and tag for source register r, per the
// operand-capture rule: already-committed values come straight from the
// register file, in-flight-but-completed values are copied out of the
// ROB, and still-pending values leave a rename tag behind.
func (c *Core) resolveOperand(r uint8, v *uint64, tag *uint32, ready *bool) {
	status := c.regStatus[r]
	if !status.busy {
		*v = c.regs.Read(r)
		*tag = 0
		return
	}
	if c.robBuf.IsEntryCompleted(status.robEntry) {
		*v = c.robBuf.EntryValue(status.robEntry)
		*tag = 0
		return
	}
	*tag = uint32(status.robEntry) + 1
	*ready = false
}

// execute dispatches every reservation-station entry in the three ready
// snapshots handed to it (captured before this tick's issue, so nothing
// issued this cycle dispatches this cycle). It returns the branch event
// for this tick, if any branch or jump resolved.
func (c *Core) execute(aluReady, memReady, branchReady []rs.ReadyEntry) *BranchEvent {
	for _, re := range aluReady {
		value := executeALU(re.Entry)
		c.robBuf.CompleteEntry(re.ROBIndex, value)
		c.rsALU.Remove(re.ROBIndex)
	}

	for _, re := range memReady {
		c.executeMem(re.Entry, re.ROBIndex)
		c.rsMem.Remove(re.ROBIndex)
	}

	var branchEvent *BranchEvent
	for _, re := range branchReady {
		value, taken, target := executeBranch(re.Entry)
		c.robBuf.CompleteBranchEntry(re.ROBIndex, value, taken, target)
		c.rsBranch.Remove(re.ROBIndex)

		c.predictor.Update(re.Entry.PC, re.Entry.Imm, taken)
		if taken {
			c.redirectPending = true
			c.redirectTarget = target
		}
		branchEvent = &BranchEvent{PC: re.Entry.PC, Opcode: re.Entry.Opcode, Taken: taken, Target: target}
	}

	return branchEvent
}

func executeALU(e rs.Entry) uint64 {
	op1 := e.Vj
	var op2 uint64
	if e.Opcode == insts.OpOPIMM {
		op2 = uint64(int64(e.Imm))
	} else {
		op2 = e.Vk
	}

	switch e.Opcode {
	case insts.OpLUI:
		return uint64(int64(e.Imm))
	case insts.OpAUIPC:
		return e.PC + uint64(int64(e.Imm))
	case insts.OpOP, insts.OpOPIMM:
		switch e.Funct3 {
		case insts.F3ADDorSUB:
			if e.Opcode == insts.OpOP && e.Funct7&insts.Funct7Alt != 0 {
				return op1 - op2
			}
			return op1 + op2
		case insts.F3SLT:
			if int64(op1) < int64(op2) {
				return 1
			}
			return 0
		case insts.F3SLTU:
			if op1 < op2 {
				return 1
			}
			return 0
		case insts.F3XOR:
			return op1 ^ op2
		case insts.F3OR:
			return op1 | op2
		case insts.F3AND:
			return op1 & op2
		case insts.F3SLL:
			return op1 << (op2 & 0x3F)
		case insts.F3SRLorSRA:
			if e.Opcode == insts.OpOP && e.Funct7&insts.Funct7Alt != 0 {
				return uint64(int64(op1) >> (op2 & 0x3F))
			}
			return op1 >> (op2 & 0x3F)
		}
	}
	return 0
}

func signExtend(value uint64, size uint8) uint64 {
	switch size {
	case 1:
		if value&0x80 != 0 {
			return value | 0xFFFFFFFFFFFFFF00
		}
	case 2:
		if value&0x8000 != 0 {
			return value | 0xFFFFFFFFFFFF0000
		}
	case 4:
		if value&0x80000000 != 0 {
			return value | 0xFFFFFFFF00000000
		}
	}
	return value
}

func (c *Core) executeMem(e rs.Entry, robIndex int) {
	addr := e.Vj + uint64(int64(e.Imm))

	switch e.Opcode {
	case insts.OpLOAD:
		size := loadSize(e.Funct3)
		data := c.mem.ReadData(addr, size)
		switch e.Funct3 {
		case insts.F3LB, insts.F3LH:
			data = signExtend(data, size)
		case insts.F3LW:
			data = signExtend(data, 4)
		}
		c.robBuf.CompleteEntry(robIndex, data)
	case insts.OpSTORE:
		c.robBuf.UpdateStoreEntry(robIndex, addr, e.Vk)
	}
}

func executeBranch(e rs.Entry) (value uint64, taken bool, target uint64) {
	switch e.Opcode {
	case insts.OpJAL:
		return e.PC + 4, true, uint64(int64(e.PC) + int64(e.Imm))
	case insts.OpJALR:
		t := (e.Vj + uint64(int64(e.Imm))) &^ 1
		return e.PC + 4, true, t
	case insts.OpBRANCH:
		taken := resolveBranchCondition(e.Funct3, e.Vj, e.Vk)
		if taken {
			return 0, true, e.PC + uint64(int64(e.Imm))
		}
		return 0, false, e.PC + 4
	}
	return 0, false, e.PC + 4
}

func resolveBranchCondition(f3 insts.Funct3, vj, vk uint64) bool {
	switch f3 {
	case insts.F3BEQ:
		return vj == vk
	case insts.F3BNE:
		return vj != vk
	case insts.F3BLT:
		return int64(vj) < int64(vk)
	case insts.F3BGE:
		return int64(vj) >= int64(vk)
	case insts.F3BLTU:
		return vj < vk
	case insts.F3BGEU:
		return vj >= vk
	default:
		return false
	}
}

// complete drains every newly-completed ROB entry and broadcasts its
// value over the common data bus to all three reservation-station pools.
func (c *Core) complete() {
	for _, nc := range c.robBuf.NewlyCompleted() {
		tag := uint32(nc.Index) + 1
		c.rsALU.Broadcast(tag, nc.Value)
		c.rsMem.Broadcast(tag, nc.Value)
		c.rsBranch.Broadcast(tag, nc.Value)
	}
}

// commit retires every completed instruction at the ROB head, in order,
// applying its architectural effect.
func (c *Core) commit() []CommitEvent {
	var events []CommitEvent

	for !c.robBuf.IsEmpty() && c.robBuf.IsHeadCompleted() {
		headIndex := c.robBuf.HeadIndex()
		entry := c.robBuf.HeadEntry()
		meta := c.meta[headIndex]

		ev := CommitEvent{
			PC:     entry.PC,
			Opcode: meta.opcode,
			Type:   meta.typ,
			Rd:     entry.Dest,
			Value:  entry.Value,
		}

		if entry.IsStore {
			size := storeSize(entry.Funct3)
			c.mem.WriteData(entry.MemAddr, entry.MemData, size)
			ev.IsStore = true
			ev.MemAddr = entry.MemAddr
			ev.MemSize = size
			ev.MemWrite = true
		} else if entry.Dest != 0 {
			c.regs.Write(entry.Dest, entry.Value)
			if c.regStatus[entry.Dest].robEntry == headIndex {
				c.regStatus[entry.Dest].busy = false
			}
		}

		c.robBuf.RemoveHead()
		events = append(events, ev)
	}

	return events
}
