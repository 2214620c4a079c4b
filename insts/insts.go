// Package insts provides RV32I instruction types and a stateless decoder.
package insts

// Opcode is the 7-bit RV32I opcode field, inst[6:0].
type Opcode uint8

// RV32I base opcodes.
const (
	OpLUI     Opcode = 0b0110111
	OpAUIPC   Opcode = 0b0010111
	OpJAL     Opcode = 0b1101111
	OpJALR    Opcode = 0b1100111
	OpBRANCH  Opcode = 0b1100011
	OpLOAD    Opcode = 0b0000011
	OpSTORE   Opcode = 0b0100011
	OpOPIMM   Opcode = 0b0010011
	OpOP      Opcode = 0b0110011
	OpSYSTEM  Opcode = 0b1110011
	OpUNKNOWN Opcode = 0xFF
)

// Funct3 is the 3-bit funct3 field, inst[14:12]. Values overlap across
// instruction categories exactly as RV32I defines them; the opcode
// disambiguates which table applies.
type Funct3 uint8

const (
	// Branch funct3.
	F3BEQ  Funct3 = 0b000
	F3BNE  Funct3 = 0b001
	F3BLT  Funct3 = 0b100
	F3BGE  Funct3 = 0b101
	F3BLTU Funct3 = 0b110
	F3BGEU Funct3 = 0b111

	// Load funct3.
	F3LB  Funct3 = 0b000
	F3LH  Funct3 = 0b001
	F3LW  Funct3 = 0b010
	F3LBU Funct3 = 0b100
	F3LHU Funct3 = 0b101

	// Store funct3.
	F3SB Funct3 = 0b000
	F3SH Funct3 = 0b001
	F3SW Funct3 = 0b010

	// OP / OP_IMM funct3.
	F3ADDorSUB Funct3 = 0b000
	F3SLL      Funct3 = 0b001
	F3SLT      Funct3 = 0b010
	F3SLTU     Funct3 = 0b011
	F3XOR      Funct3 = 0b100
	F3SRLorSRA Funct3 = 0b101
	F3OR       Funct3 = 0b110
	F3AND      Funct3 = 0b111
)

// Funct7Alt is the bit pattern that distinguishes SUB from ADD and SRA
// from SRL: funct7 bit 5 set (0x20).
const Funct7Alt = 0x20

// Type is the instruction encoding format.
type Type uint8

const (
	TypeR Type = iota
	TypeI
	TypeS
	TypeB
	TypeU
	TypeJ
	TypeUnknown
)

// DecodePacket is the decoder's output: extracted fields plus the
// sign-extended 32-bit immediate. It is produced by Decode and consumed by
// issue.
type DecodePacket struct {
	Instruction uint32
	PC          uint64
	Type        Type
	Opcode      Opcode
	Funct3      Funct3
	Funct7      uint8
	Rs1         uint8
	Rs2         uint8
	Rd          uint8
	Imm         int32
	Valid       bool
}

// FetchPacket is the fetch stage's output: the raw instruction word and
// its address.
type FetchPacket struct {
	Instruction uint32
	PC          uint64
	Valid       bool
}

// ExtractOpcode returns the 7-bit opcode field of a raw instruction word.
func ExtractOpcode(word uint32) Opcode {
	switch Opcode(word & 0x7F) {
	case OpLUI, OpAUIPC, OpJAL, OpJALR, OpBRANCH, OpLOAD, OpSTORE, OpOPIMM, OpOP, OpSYSTEM:
		return Opcode(word & 0x7F)
	default:
		return OpUNKNOWN
	}
}

// TypeOf maps an opcode to its instruction encoding format.
func TypeOf(op Opcode) Type {
	switch op {
	case OpOP:
		return TypeR
	case OpOPIMM, OpLOAD, OpJALR:
		return TypeI
	case OpSTORE:
		return TypeS
	case OpBRANCH:
		return TypeB
	case OpLUI, OpAUIPC:
		return TypeU
	case OpJAL:
		return TypeJ
	default:
		return TypeUnknown
	}
}

// IsBranchOrJump reports whether op is one of BRANCH, JAL, or JALR — the
// three opcodes the fetch stage and branch predictor treat as control
// flow.
func IsBranchOrJump(op Opcode) bool {
	return op == OpBRANCH || op == OpJAL || op == OpJALR
}

// Decode extracts every field of a raw 32-bit instruction word, including
// its sign-extended immediate, into a DecodePacket. Decode is stateless:
// the same word always decodes to the same packet.
func Decode(word uint32, pc uint64) DecodePacket {
	op := ExtractOpcode(word)
	typ := TypeOf(op)

	p := DecodePacket{
		Instruction: word,
		PC:          pc,
		Type:        typ,
		Opcode:      op,
		Funct3:      Funct3((word >> 12) & 0x7),
		Funct7:      uint8((word >> 25) & 0x7F),
		Rd:          uint8((word >> 7) & 0x1F),
		Rs1:         uint8((word >> 15) & 0x1F),
		Rs2:         uint8((word >> 20) & 0x1F),
		Valid:       true,
	}
	p.Imm = immediate(word, typ)
	return p
}

// immediate computes the sign-extended 32-bit immediate for the given
// instruction word and type, per the RISC-V encoding tables.
func immediate(word uint32, typ Type) int32 {
	switch typ {
	case TypeI:
		imm := int32((word >> 20) & 0xFFF)
		if imm&0x800 != 0 {
			imm |= ^int32(0xFFF)
		}
		return imm
	case TypeS:
		imm := int32(((word >> 25) & 0x7F) << 5)
		imm |= int32((word >> 7) & 0x1F)
		if imm&0x800 != 0 {
			imm |= ^int32(0xFFF)
		}
		return imm
	case TypeB:
		imm := int32((word>>31)&0x1) << 12
		imm |= int32((word>>7)&0x1) << 11
		imm |= int32((word>>25)&0x3F) << 5
		imm |= int32((word>>8)&0xF) << 1
		if imm&0x1000 != 0 {
			imm |= ^int32(0x1FFF)
		}
		return imm
	case TypeU:
		return int32(word & 0xFFFFF000)
	case TypeJ:
		imm := int32((word>>31)&0x1) << 20
		imm |= int32((word>>12)&0xFF) << 12
		imm |= int32((word>>20)&0x1) << 11
		imm |= int32((word>>21)&0x3FF) << 1
		if imm&0x100000 != 0 {
			imm |= ^int32(0x1FFFFF)
		}
		return imm
	default:
		return 0
	}
}
