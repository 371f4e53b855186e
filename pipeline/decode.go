package pipeline

import (
	"github.com/sarchlab/pipsim/emu"
	"github.com/sarchlab/pipsim/insts"
)

// InstructionDecode splits the instruction in IF/ID into its fields,
// reads the architectural source registers, derives the control bits,
// and latches everything into the ID/EX registers. Jumps and
// always-taken branches redirect the PC from here.
//
// The stage runs in the tock half so the register values it reads
// reflect the writes WriteBack committed earlier in the same cycle.
type InstructionDecode struct {
	ifIDPC     uint32
	ifIDNextPC uint32
	ifIDInstr  uint32

	idEXPC     uint32
	idEXNextPC uint32
	idEXInstr  uint32

	idEXRegWrite uint32
	idEXMemWrite uint32
	idEXMemRead  uint32

	idEXReg1Value uint32
	idEXReg2Value uint32

	idEXImm  uint32
	idEXReg1 uint32
	idEXReg2 uint32
	idEXReg3 uint32

	idEXRAWrite uint32
	idEXRAValue uint32

	pc uint32

	nextPCType    uint32
	pipelineState uint32
}

// NewInstructionDecode creates the decode stage.
func NewInstructionDecode() *InstructionDecode {
	return &InstructionDecode{}
}

// Initialize declares the stage's registers and signals.
func (s *InstructionDecode) Initialize(
	regMap *emu.RegisterMap,
	sigMap *emu.SignalMap,
) emu.TickTockType {
	regMap.AddEntry("IF_ID_PC", &s.ifIDPC, emu.UsageRead)
	regMap.AddEntry("IF_ID_NextPC", &s.ifIDNextPC, emu.UsageRead)
	regMap.AddEntry("IF_ID_Instr", &s.ifIDInstr, emu.UsageRead)

	regMap.AddEntry("ID_EX_PC", &s.idEXPC, emu.UsageWrite)
	regMap.AddEntry("ID_EX_NextPC", &s.idEXNextPC, emu.UsageWrite)
	regMap.AddEntry("ID_EX_Instr", &s.idEXInstr, emu.UsageWrite)

	regMap.AddEntry("ID_EX_RegWrite", &s.idEXRegWrite, emu.UsageWrite)
	regMap.AddEntry("ID_EX_MemWrite", &s.idEXMemWrite, emu.UsageWrite)
	regMap.AddEntry("ID_EX_MemRead", &s.idEXMemRead, emu.UsageWrite)

	regMap.AddEntry("ID_EX_Reg1Value", &s.idEXReg1Value, emu.UsageWrite)
	regMap.AddEntry("ID_EX_Reg2Value", &s.idEXReg2Value, emu.UsageWrite)

	regMap.AddEntry("ID_EX_Imm", &s.idEXImm, emu.UsageWrite)
	regMap.AddEntry("ID_EX_Reg1", &s.idEXReg1, emu.UsageWrite)
	regMap.AddEntry("ID_EX_Reg2", &s.idEXReg2, emu.UsageWrite)
	regMap.AddEntry("ID_EX_Reg3", &s.idEXReg3, emu.UsageWrite)

	regMap.AddEntry("ID_EX_RAWrite", &s.idEXRAWrite, emu.UsageWrite)
	regMap.AddEntry("ID_EX_RAValue", &s.idEXRAValue, emu.UsageWrite)

	regMap.AddEntry("PC", &s.pc, emu.UsageWrite)

	sigMap.AddEntry("nextPCType", &s.nextPCType, emu.UsageRead)
	sigMap.AddEntry("pipelineState", &s.pipelineState, emu.UsageRead)

	return emu.Tock
}

// Execute decodes the instruction captured in IF/ID.
func (s *InstructionDecode) Execute(memory *emu.Memory) ([]emu.Delta, error) {
	regs := emu.NewRegReader(memory)

	instr := regs.Read(s.ifIDInstr)
	nextPC := regs.Read(s.ifIDNextPC)

	reg1 := insts.Rs(instr)
	reg2 := insts.Rt(instr)
	reg3 := insts.Rd(instr)
	imm := insts.Imm(instr)

	reg1Value := regs.Read(reg1)
	reg2Value := regs.Read(reg2)
	ifIDPC := regs.Read(s.ifIDPC)
	if err := regs.Err(); err != nil {
		return nil, err
	}

	deltas := []emu.Delta{
		emu.RegisterDelta(s.idEXPC, ifIDPC),
		emu.RegisterDelta(s.idEXNextPC, nextPC),
	}

	var regWrite, memWrite, memRead, raWrite, raValue uint32

	op := insts.Opcode(instr)
	switch {
	case op == insts.OpRType:
		if insts.Funct(instr) == insts.FnJR {
			deltas = append(deltas, emu.ConditionedDelta(
				s.pc, reg1Value, s.nextPCType, uint16(JumpResult)))
		} else {
			regWrite = 1
		}

	case op == insts.OpJ || op == insts.OpJAL:
		target := insts.Target(instr)<<2 | nextPC&0xF0000000
		deltas = append(deltas, emu.ConditionedDelta(
			s.pc, target, s.nextPCType, uint16(JumpResult)))

		if op == insts.OpJAL {
			raWrite = 1
			raValue = nextPC
		}

	case op == insts.OpBEQ || op == insts.OpBNE:
		target := nextPC + insts.SignExtend(imm, 16)*4
		deltas = append(deltas, emu.ConditionedDelta(
			s.pc, target, s.nextPCType, uint16(BranchResultID)))

	case op == insts.OpADDIU || op == insts.OpANDI || op == insts.OpORI ||
		op == insts.OpSLTIU || op == insts.OpLUI:
		regWrite = 1

	case op == insts.OpLB || op == insts.OpLW:
		regWrite = 1
		memRead = 1

	case op == insts.OpSB || op == insts.OpSW:
		memWrite = 1
	}

	// The instruction word and control bits are squashed to a bubble
	// while stalled or in a misprediction shadow; RAWrite is guarded
	// the same way so a squashed JAL cannot reach the register file.
	deltas = append(deltas,
		emu.ConditionedDelta(s.idEXInstr, instr, s.pipelineState, uint16(Normal)),
		emu.ConditionedDelta(s.idEXRegWrite, regWrite, s.pipelineState, uint16(Normal)),
		emu.ConditionedDelta(s.idEXMemWrite, memWrite, s.pipelineState, uint16(Normal)),
		emu.ConditionedDelta(s.idEXMemRead, memRead, s.pipelineState, uint16(Normal)),
		emu.ConditionedDelta(s.idEXRAWrite, raWrite, s.pipelineState, uint16(Normal)),

		emu.ConditionedDelta(s.idEXInstr, instr, s.pipelineState, uint16(Flushed)),
		emu.ConditionedDelta(s.idEXRegWrite, regWrite, s.pipelineState, uint16(Flushed)),
		emu.ConditionedDelta(s.idEXMemWrite, memWrite, s.pipelineState, uint16(Flushed)),
		emu.ConditionedDelta(s.idEXMemRead, memRead, s.pipelineState, uint16(Flushed)),
		emu.ConditionedDelta(s.idEXRAWrite, raWrite, s.pipelineState, uint16(Flushed)),

		emu.ConditionedDelta(s.idEXInstr, 0, s.pipelineState, uint16(Stalled)),
		emu.ConditionedDelta(s.idEXRegWrite, 0, s.pipelineState, uint16(Stalled)),
		emu.ConditionedDelta(s.idEXMemWrite, 0, s.pipelineState, uint16(Stalled)),
		emu.ConditionedDelta(s.idEXMemRead, 0, s.pipelineState, uint16(Stalled)),
		emu.ConditionedDelta(s.idEXRAWrite, 0, s.pipelineState, uint16(Stalled)),

		emu.ConditionedDelta(s.idEXInstr, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.idEXRegWrite, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.idEXMemWrite, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.idEXMemRead, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.idEXRAWrite, 0, s.pipelineState, uint16(Flushed3)),
	)

	deltas = append(deltas,
		emu.RegisterDelta(s.idEXReg1Value, reg1Value),
		emu.RegisterDelta(s.idEXReg2Value, reg2Value),

		emu.RegisterDelta(s.idEXImm, imm),
		emu.RegisterDelta(s.idEXReg1, reg1),
		emu.RegisterDelta(s.idEXReg2, reg2),
		emu.RegisterDelta(s.idEXReg3, reg3),

		emu.RegisterDelta(s.idEXRAValue, raValue),
	)

	return deltas, nil
}
