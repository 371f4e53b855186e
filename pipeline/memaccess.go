package pipeline

import (
	"github.com/sarchlab/pipsim/emu"
	"github.com/sarchlab/pipsim/insts"
)

// MemoryAccess performs loads and stores for the instruction in EX/MEM
// and forwards everything else into the MEM/WB registers. Branches are
// resolved here: depending on the prediction policy the stage either
// redirects the PC to the branch target or restores the fall-through.
type MemoryAccess struct {
	exMemPC     uint32
	exMemNextPC uint32
	exMemInstr  uint32

	exMemRegWrite uint32
	exMemMemWrite uint32
	exMemMemRead  uint32

	exMemReg2Value uint32
	exMemReg2      uint32

	exMemALUResult uint32
	exMemDestReg   uint32

	exMemRAWrite uint32
	exMemRAValue uint32

	memWBPC    uint32
	memWBInstr uint32

	memWBRegWrite uint32
	memWBMemRead  uint32

	memWBALUResult uint32
	memWBDestReg   uint32

	memWBRAWrite uint32
	memWBRAValue uint32

	memWBReadData uint32

	pc uint32

	nextPCType uint32
}

// NewMemoryAccess creates the memory stage.
func NewMemoryAccess() *MemoryAccess {
	return &MemoryAccess{}
}

// Initialize declares the stage's registers and signals.
func (s *MemoryAccess) Initialize(
	regMap *emu.RegisterMap,
	sigMap *emu.SignalMap,
) emu.TickTockType {
	regMap.AddEntry("EX_MEM_PC", &s.exMemPC, emu.UsageRead)
	regMap.AddEntry("EX_MEM_NextPC", &s.exMemNextPC, emu.UsageRead)
	regMap.AddEntry("EX_MEM_Instr", &s.exMemInstr, emu.UsageRead)

	regMap.AddEntry("EX_MEM_RegWrite", &s.exMemRegWrite, emu.UsageRead)
	regMap.AddEntry("EX_MEM_MemWrite", &s.exMemMemWrite, emu.UsageRead)
	regMap.AddEntry("EX_MEM_MemRead", &s.exMemMemRead, emu.UsageRead)

	regMap.AddEntry("EX_MEM_Reg2Value", &s.exMemReg2Value, emu.UsageRead)
	regMap.AddEntry("EX_MEM_Reg2", &s.exMemReg2, emu.UsageRead)

	regMap.AddEntry("EX_MEM_ALUResult", &s.exMemALUResult, emu.UsageRead)
	regMap.AddEntry("EX_MEM_DestReg", &s.exMemDestReg, emu.UsageRead)

	regMap.AddEntry("EX_MEM_RAWrite", &s.exMemRAWrite, emu.UsageRead)
	regMap.AddEntry("EX_MEM_RAValue", &s.exMemRAValue, emu.UsageRead)

	regMap.AddEntry("MEM_WB_PC", &s.memWBPC, emu.UsageWrite)
	regMap.AddEntry("MEM_WB_Instr", &s.memWBInstr, emu.UsageWrite)

	regMap.AddEntry("MEM_WB_RegWrite", &s.memWBRegWrite, emu.UsageReadWrite)
	regMap.AddEntry("MEM_WB_MemRead", &s.memWBMemRead, emu.UsageReadWrite)

	regMap.AddEntry("MEM_WB_ALUResult", &s.memWBALUResult, emu.UsageWrite)
	regMap.AddEntry("MEM_WB_DestReg", &s.memWBDestReg, emu.UsageReadWrite)

	regMap.AddEntry("MEM_WB_RAWrite", &s.memWBRAWrite, emu.UsageWrite)
	regMap.AddEntry("MEM_WB_RAValue", &s.memWBRAValue, emu.UsageWrite)

	regMap.AddEntry("MEM_WB_ReadData", &s.memWBReadData, emu.UsageReadWrite)

	regMap.AddEntry("PC", &s.pc, emu.UsageWrite)

	sigMap.AddEntry("nextPCType", &s.nextPCType, emu.UsageRead)

	return emu.NoPreference
}

// Execute resolves branches and performs the memory access for the
// instruction in EX/MEM.
func (s *MemoryAccess) Execute(memory *emu.Memory) ([]emu.Delta, error) {
	regs := emu.NewRegReader(memory)

	deltas := []emu.Delta{
		emu.RegisterDelta(s.memWBPC, regs.Read(s.exMemPC)),
		emu.RegisterDelta(s.memWBInstr, regs.Read(s.exMemInstr)),
		emu.RegisterDelta(s.memWBRegWrite, regs.Read(s.exMemRegWrite)),
		emu.RegisterDelta(s.memWBMemRead, regs.Read(s.exMemMemRead)),
		emu.RegisterDelta(s.memWBALUResult, regs.Read(s.exMemALUResult)),
		emu.RegisterDelta(s.memWBDestReg, regs.Read(s.exMemDestReg)),
		emu.RegisterDelta(s.memWBRAWrite, regs.Read(s.exMemRAWrite)),
		emu.RegisterDelta(s.memWBRAValue, regs.Read(s.exMemRAValue)),
	}

	instr := regs.Read(s.exMemInstr)
	nextPC := regs.Read(s.exMemNextPC)
	memRead := regs.Read(s.exMemMemRead)
	memWrite := regs.Read(s.exMemMemWrite)
	aluResult := regs.Read(s.exMemALUResult)
	if err := regs.Err(); err != nil {
		return nil, err
	}

	if insts.IsBranch(instr) {
		target := nextPC + insts.SignExtend(insts.Imm(instr), 16)*4
		deltas = append(deltas,
			emu.ConditionedDelta(s.pc, target, s.nextPCType, uint16(BranchResultMemJump)),
			emu.ConditionedDelta(s.pc, nextPC, s.nextPCType, uint16(BranchResultMemRestore)),
		)
	}

	var readData uint32
	address := emu.AddressFromRaw(aluResult)
	if memRead != 0 {
		if insts.IsWordAccess(instr) {
			readData = memory.ReadWord(address)
		} else {
			readData = insts.SignExtend(uint32(memory.ReadByte(address)), 8)
		}
	}

	if memWrite != 0 {
		writeData := regs.Read(s.exMemReg2Value)

		// Store data loaded by the immediately preceding instruction
		// is still in MEM/WB; pick it up there.
		memWBRegWrite := regs.Read(s.memWBRegWrite)
		memWBMemRead := regs.Read(s.memWBMemRead)
		memWBDestReg := regs.Read(s.memWBDestReg)
		exMemReg2 := regs.Read(s.exMemReg2)
		if memWBRegWrite != 0 && memWBMemRead != 0 && memWBDestReg != 0 &&
			memWBDestReg == exMemReg2 {
			writeData = regs.Read(s.memWBReadData)
		}
		if err := regs.Err(); err != nil {
			return nil, err
		}

		if insts.IsWordAccess(instr) {
			deltas = append(deltas, emu.MemoryWordDelta(aluResult, writeData))
		} else {
			deltas = append(deltas, emu.MemoryByteDelta(aluResult, byte(writeData)))
		}
	}

	deltas = append(deltas, emu.RegisterDelta(s.memWBReadData, readData))

	return deltas, nil
}
