// Package branchpred implements the fetch-stage branch predictor: seven
// prediction schemes behind one Predictor, selected at construction time.
package branchpred

import "github.com/ZhaoCake/CakemuOoO/insts"

// Type selects the prediction scheme.
type Type uint8

const (
	AlwaysNotTaken Type = iota
	AlwaysTaken
	StaticBTFN
	OneBit
	TwoBit
	GShare
	Tournament
)

// TwoBitState is a saturating 2-bit counter state.
type TwoBitState uint8

const (
	StronglyNotTaken TwoBitState = iota
	WeaklyNotTaken
	WeaklyTaken
	StronglyTaken
)

// taken reports whether a 2-bit state predicts taken.
func (s TwoBitState) taken() bool {
	return s >= WeaklyTaken
}

// increment saturates at StronglyTaken.
func (s TwoBitState) increment() TwoBitState {
	if s == StronglyTaken {
		return s
	}
	return s + 1
}

// decrement saturates at StronglyNotTaken.
func (s TwoBitState) decrement() TwoBitState {
	if s == StronglyNotTaken {
		return s
	}
	return s - 1
}

// Config configures a Predictor. TableSize must be a power of two; it is
// rounded up to the next power of two otherwise.
type Config struct {
	Type        Type
	TableSize   uint32
	HistoryBits uint32
}

// DefaultConfig returns the two_bit predictor with a 1024-entry table,
// matching the reference tool's defaults.
func DefaultConfig() Config {
	return Config{Type: TwoBit, TableSize: 1024, HistoryBits: 8}
}

// Stats holds accumulated prediction counters.
type Stats struct {
	TotalPredictions   uint64
	CorrectPredictions uint64
}

// Accuracy returns correct/total, clamped to [0,1]. It is 0 when no
// predictions have been made yet.
func (s Stats) Accuracy() float64 {
	if s.TotalPredictions == 0 {
		return 0
	}
	correct := s.CorrectPredictions
	if correct > s.TotalPredictions {
		correct = s.TotalPredictions
	}
	return float64(correct) / float64(s.TotalPredictions)
}

// Predictor is a branch direction predictor. The zero value is not usable;
// construct with New.
type Predictor struct {
	typ         Type
	tableSize   uint32
	historyBits uint32

	oneBit []bool
	twoBit []TwoBitState
	pht    []TwoBitState
	ghr    uint32

	stats Stats
}

func nextPowerOfTwo(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}

// New builds a Predictor from cfg, allocating only the tables its scheme
// needs.
func New(cfg Config) *Predictor {
	size := nextPowerOfTwo(cfg.TableSize)
	if size == 0 {
		size = 1024
	}
	historyBits := cfg.HistoryBits
	if historyBits == 0 {
		historyBits = 8
	}

	p := &Predictor{
		typ:         cfg.Type,
		tableSize:   size,
		historyBits: historyBits,
	}

	switch cfg.Type {
	case OneBit:
		p.oneBit = make([]bool, size)
	case TwoBit:
		p.twoBit = make([]TwoBitState, size)
		for i := range p.twoBit {
			p.twoBit[i] = WeaklyNotTaken
		}
	case GShare:
		p.pht = make([]TwoBitState, size)
		for i := range p.pht {
			p.pht[i] = WeaklyNotTaken
		}
	case Tournament:
		p.twoBit = make([]TwoBitState, size)
		p.pht = make([]TwoBitState, size)
		for i := range p.twoBit {
			p.twoBit[i] = WeaklyNotTaken
			p.pht[i] = WeaklyNotTaken
		}
	}

	return p
}

func (p *Predictor) bhtIndex(pc uint64) uint32 {
	return uint32(pc>>2) & (p.tableSize - 1)
}

func (p *Predictor) phtIndex(pc uint64) uint32 {
	return (uint32(pc>>2) ^ p.ghr) & (p.tableSize - 1)
}

// staticBTFN predicts taken for backward branches (negative B-immediate)
// and not-taken for forward branches.
func staticBTFN(imm int32) bool {
	return imm < 0
}

// Predict returns the prediction for the instruction at pc. It returns
// false unconditionally when opcode is not a branch or jump and does not
// touch the statistics counters in that case.
func (p *Predictor) Predict(pc uint64, opcode insts.Opcode, imm int32) bool {
	if !insts.IsBranchOrJump(opcode) {
		return false
	}

	var prediction bool
	switch p.typ {
	case AlwaysNotTaken:
		prediction = false
	case AlwaysTaken:
		prediction = true
	case StaticBTFN:
		prediction = staticBTFN(imm)
	case OneBit:
		prediction = p.oneBit[p.bhtIndex(pc)]
	case TwoBit:
		prediction = p.twoBit[p.bhtIndex(pc)].taken()
	case GShare:
		prediction = p.pht[p.phtIndex(pc)].taken()
	case Tournament:
		bimodal := p.twoBit[p.bhtIndex(pc)].taken()
		global := p.pht[p.phtIndex(pc)].taken()
		if pc&0x100 != 0 {
			prediction = global
		} else {
			prediction = bimodal
		}
	}

	p.stats.TotalPredictions++
	return prediction
}

// Update records the actual outcome of a resolved branch or jump at pc,
// updating per-scheme state and the correct-prediction counter. imm is the
// instruction's branch immediate; only StaticBTFN uses it, since it is the
// one scheme whose prediction cannot be recovered from pc and stored state
// alone.
func (p *Predictor) Update(pc uint64, imm int32, taken bool) {
	switch p.typ {
	case AlwaysNotTaken:
		if !taken {
			p.stats.CorrectPredictions++
		}
	case AlwaysTaken:
		if taken {
			p.stats.CorrectPredictions++
		}
	case StaticBTFN:
		if staticBTFN(imm) == taken {
			p.stats.CorrectPredictions++
		}
	case OneBit:
		idx := p.bhtIndex(pc)
		if p.oneBit[idx] == taken {
			p.stats.CorrectPredictions++
		}
		p.oneBit[idx] = taken
	case TwoBit:
		idx := p.bhtIndex(pc)
		state := p.twoBit[idx]
		if state.taken() == taken {
			p.stats.CorrectPredictions++
		}
		if taken {
			p.twoBit[idx] = state.increment()
		} else {
			p.twoBit[idx] = state.decrement()
		}
	case GShare:
		idx := p.phtIndex(pc)
		state := p.pht[idx]
		if state.taken() == taken {
			p.stats.CorrectPredictions++
		}
		if taken {
			p.pht[idx] = state.increment()
		} else {
			p.pht[idx] = state.decrement()
		}
		p.shiftGHR(taken)
	case Tournament:
		bIdx := p.bhtIndex(pc)
		gIdx := p.phtIndex(pc)
		bimodal := p.twoBit[bIdx]
		global := p.pht[gIdx]

		if bimodal.taken() == taken || global.taken() == taken {
			p.stats.CorrectPredictions++
		}

		if taken {
			p.twoBit[bIdx] = bimodal.increment()
			p.pht[gIdx] = global.increment()
		} else {
			p.twoBit[bIdx] = bimodal.decrement()
			p.pht[gIdx] = global.decrement()
		}
		p.shiftGHR(taken)
	}
}

func (p *Predictor) shiftGHR(taken bool) {
	bit := uint32(0)
	if taken {
		bit = 1
	}
	mask := (uint32(1) << p.historyBits) - 1
	p.ghr = ((p.ghr << 1) | bit) & mask
}

// Stats returns the accumulated prediction counters.
func (p *Predictor) Stats() Stats {
	return p.stats
}

// ResetStats clears the accuracy counters without touching predictor
// state (table contents, GHR).
func (p *Predictor) ResetStats() {
	p.stats = Stats{}
}
