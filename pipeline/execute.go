package pipeline

import (
	"github.com/sarchlab/pipsim/emu"
	"github.com/sarchlab/pipsim/insts"
)

// Execution runs the ALU over the ID/EX operands and latches the
// result into the EX/MEM registers. Source operands are bypassed from
// EX/MEM (any register result) or, failing that, from MEM/WB (load
// data only). For branches the stage leaves the taken flag in
// EX_MEM_ALUResult, where the controllers and the memory stage resolve
// it.
type Execution struct {
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

	exMemPC     uint32
	exMemNextPC uint32
	exMemInstr  uint32

	exMemRegWrite uint32
	exMemMemWrite uint32
	exMemMemRead  uint32

	exMemReg2Value uint32
	exMemReg2      uint32

	exMemRAWrite uint32
	exMemRAValue uint32

	exMemALUResult uint32
	exMemDestReg   uint32

	memWBRegWrite uint32
	memWBMemRead  uint32
	memWBDestReg  uint32
	memWBReadData uint32

	pipelineState uint32
}

// NewExecution creates the execute stage.
func NewExecution() *Execution {
	return &Execution{}
}

// Initialize declares the stage's registers and signals.
func (s *Execution) Initialize(
	regMap *emu.RegisterMap,
	sigMap *emu.SignalMap,
) emu.TickTockType {
	regMap.AddEntry("ID_EX_PC", &s.idEXPC, emu.UsageRead)
	regMap.AddEntry("ID_EX_NextPC", &s.idEXNextPC, emu.UsageRead)
	regMap.AddEntry("ID_EX_Instr", &s.idEXInstr, emu.UsageRead)

	regMap.AddEntry("ID_EX_RegWrite", &s.idEXRegWrite, emu.UsageRead)
	regMap.AddEntry("ID_EX_MemWrite", &s.idEXMemWrite, emu.UsageRead)
	regMap.AddEntry("ID_EX_MemRead", &s.idEXMemRead, emu.UsageRead)

	regMap.AddEntry("ID_EX_Reg1Value", &s.idEXReg1Value, emu.UsageRead)
	regMap.AddEntry("ID_EX_Reg2Value", &s.idEXReg2Value, emu.UsageRead)

	regMap.AddEntry("ID_EX_Imm", &s.idEXImm, emu.UsageRead)
	regMap.AddEntry("ID_EX_Reg1", &s.idEXReg1, emu.UsageRead)
	regMap.AddEntry("ID_EX_Reg2", &s.idEXReg2, emu.UsageRead)
	regMap.AddEntry("ID_EX_Reg3", &s.idEXReg3, emu.UsageRead)

	regMap.AddEntry("ID_EX_RAWrite", &s.idEXRAWrite, emu.UsageRead)
	regMap.AddEntry("ID_EX_RAValue", &s.idEXRAValue, emu.UsageRead)

	regMap.AddEntry("EX_MEM_PC", &s.exMemPC, emu.UsageWrite)
	regMap.AddEntry("EX_MEM_NextPC", &s.exMemNextPC, emu.UsageWrite)
	regMap.AddEntry("EX_MEM_Instr", &s.exMemInstr, emu.UsageWrite)

	regMap.AddEntry("EX_MEM_RegWrite", &s.exMemRegWrite, emu.UsageReadWrite)
	regMap.AddEntry("EX_MEM_MemWrite", &s.exMemMemWrite, emu.UsageWrite)
	regMap.AddEntry("EX_MEM_MemRead", &s.exMemMemRead, emu.UsageWrite)

	regMap.AddEntry("EX_MEM_Reg2Value", &s.exMemReg2Value, emu.UsageWrite)
	regMap.AddEntry("EX_MEM_Reg2", &s.exMemReg2, emu.UsageWrite)

	regMap.AddEntry("EX_MEM_RAWrite", &s.exMemRAWrite, emu.UsageWrite)
	regMap.AddEntry("EX_MEM_RAValue", &s.exMemRAValue, emu.UsageWrite)

	regMap.AddEntry("EX_MEM_ALUResult", &s.exMemALUResult, emu.UsageReadWrite)
	regMap.AddEntry("EX_MEM_DestReg", &s.exMemDestReg, emu.UsageReadWrite)

	regMap.AddEntry("MEM_WB_RegWrite", &s.memWBRegWrite, emu.UsageRead)
	regMap.AddEntry("MEM_WB_MemRead", &s.memWBMemRead, emu.UsageRead)
	regMap.AddEntry("MEM_WB_DestReg", &s.memWBDestReg, emu.UsageRead)
	regMap.AddEntry("MEM_WB_ReadData", &s.memWBReadData, emu.UsageRead)

	sigMap.AddEntry("pipelineState", &s.pipelineState, emu.UsageRead)

	return emu.NoPreference
}

// Execute computes the ALU result for the instruction in ID/EX.
func (s *Execution) Execute(memory *emu.Memory) ([]emu.Delta, error) {
	regs := emu.NewRegReader(memory)

	instr := regs.Read(s.idEXInstr)
	regWrite := regs.Read(s.idEXRegWrite)
	memWrite := regs.Read(s.idEXMemWrite)
	memRead := regs.Read(s.idEXMemRead)
	raWrite := regs.Read(s.idEXRAWrite)

	deltas := []emu.Delta{
		emu.RegisterDelta(s.exMemPC, regs.Read(s.idEXPC)),
		emu.RegisterDelta(s.exMemNextPC, regs.Read(s.idEXNextPC)),
		emu.RegisterDelta(s.exMemReg2, regs.Read(s.idEXReg2)),
		emu.RegisterDelta(s.exMemRAValue, regs.Read(s.idEXRAValue)),
	}

	// Everything an instruction can cause downstream is squashed in
	// the misprediction shadow: the word, the control bits, and the
	// RA-write flag.
	for _, state := range []PipelineState{Normal, Stalled, Flushed} {
		deltas = append(deltas,
			emu.ConditionedDelta(s.exMemInstr, instr, s.pipelineState, uint16(state)),
			emu.ConditionedDelta(s.exMemRegWrite, regWrite, s.pipelineState, uint16(state)),
			emu.ConditionedDelta(s.exMemMemWrite, memWrite, s.pipelineState, uint16(state)),
			emu.ConditionedDelta(s.exMemMemRead, memRead, s.pipelineState, uint16(state)),
			emu.ConditionedDelta(s.exMemRAWrite, raWrite, s.pipelineState, uint16(state)),
		)
	}
	deltas = append(deltas,
		emu.ConditionedDelta(s.exMemInstr, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.exMemRegWrite, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.exMemMemWrite, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.exMemMemRead, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.exMemRAWrite, 0, s.pipelineState, uint16(Flushed3)),
	)

	reg1 := regs.Read(s.idEXReg1)
	reg2 := regs.Read(s.idEXReg2)
	reg3 := regs.Read(s.idEXReg3)
	imm := regs.Read(s.idEXImm)

	source1 := regs.Read(s.idEXReg1Value)
	source2 := regs.Read(s.idEXReg2Value)

	exMemRegWrite := regs.Read(s.exMemRegWrite)
	exMemDestReg := regs.Read(s.exMemDestReg)
	memWBRegWrite := regs.Read(s.memWBRegWrite)
	memWBMemRead := regs.Read(s.memWBMemRead)
	memWBDestReg := regs.Read(s.memWBDestReg)
	if err := regs.Err(); err != nil {
		return nil, err
	}

	// The MEM/WB path is consulted only when EX/MEM holds no register
	// write, and it carries load data only. An ALU result consumed
	// exactly two instructions later is not bypassed; the consumer
	// keeps the register value it read at decode.
	if exMemRegWrite != 0 && exMemDestReg != 0 {
		aluResult, err := memory.ReadRegister(s.exMemALUResult)
		if err != nil {
			return nil, err
		}
		if exMemDestReg == reg1 {
			source1 = aluResult
		}
		if exMemDestReg == reg2 {
			source2 = aluResult
		}
	} else if memWBRegWrite != 0 && memWBDestReg != 0 && memWBMemRead != 0 {
		readData, err := memory.ReadRegister(s.memWBReadData)
		if err != nil {
			return nil, err
		}
		if memWBDestReg == reg1 {
			source1 = readData
		}
		if memWBDestReg == reg2 {
			source2 = readData
		}
	}

	deltas = append(deltas, emu.RegisterDelta(s.exMemReg2Value, source2))

	var destValue uint32
	destination := reg2

	op := insts.Opcode(instr)
	switch {
	case op == insts.OpRType:
		shamt := insts.Shamt(instr)
		switch insts.Funct(instr) {
		case insts.FnSLL:
			destValue = source2 << shamt
		case insts.FnSRL:
			destValue = source2 >> shamt
		case insts.FnADDU:
			destValue = source1 + source2
		case insts.FnSUBU:
			destValue = source1 - source2
		case insts.FnAND:
			destValue = source1 & source2
		case insts.FnOR:
			destValue = source1 | source2
		case insts.FnNOR:
			destValue = ^(source1 | source2)
		case insts.FnSLTU:
			if source1 < source2 {
				destValue = 1
			}
		}
		destination = reg3

	case op == insts.OpADDIU:
		destValue = source1 + insts.SignExtend(imm, 16)
	case op == insts.OpANDI:
		destValue = source1 & imm
	case op == insts.OpORI:
		destValue = source1 | imm
	case op == insts.OpSLTIU:
		// Source-faithful: compares signed despite the mnemonic.
		if int32(source1) < int32(insts.SignExtend(imm, 16)) {
			destValue = 1
		}
	case op == insts.OpLUI:
		destValue = imm << 16

	case op == insts.OpBEQ || op == insts.OpBNE:
		if (source1 == source2) == (op == insts.OpBEQ) {
			destValue = 1
		}

	case op == insts.OpLB || op == insts.OpLW ||
		op == insts.OpSB || op == insts.OpSW:
		destValue = source1 + insts.SignExtend(imm, 16)
	}

	deltas = append(deltas,
		emu.RegisterDelta(s.exMemALUResult, destValue),
		emu.RegisterDelta(s.exMemDestReg, destination),
	)

	return deltas, nil
}
