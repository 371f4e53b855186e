package pipeline

import (
	"github.com/sarchlab/pipsim/emu"
)

// WriteBack commits the instruction in MEM/WB to the architectural
// register file. It runs in the tick half so its writes are visible to
// the same cycle's decode.
type WriteBack struct {
	memWBPC    uint32
	memWBInstr uint32

	memWBRegWrite uint32
	memWBMemRead  uint32

	memWBALUResult uint32
	memWBDestReg   uint32

	memWBReadData uint32

	memWBRAWrite uint32
	memWBRAValue uint32

	wbPC    uint32
	wbInstr uint32

	ra uint32
}

// NewWriteBack creates the write-back stage.
func NewWriteBack() *WriteBack {
	return &WriteBack{}
}

// Initialize declares the stage's registers.
func (s *WriteBack) Initialize(
	regMap *emu.RegisterMap,
	sigMap *emu.SignalMap,
) emu.TickTockType {
	regMap.AddEntry("MEM_WB_PC", &s.memWBPC, emu.UsageRead)
	regMap.AddEntry("MEM_WB_Instr", &s.memWBInstr, emu.UsageRead)

	regMap.AddEntry("MEM_WB_RegWrite", &s.memWBRegWrite, emu.UsageRead)
	regMap.AddEntry("MEM_WB_MemRead", &s.memWBMemRead, emu.UsageRead)

	regMap.AddEntry("MEM_WB_ALUResult", &s.memWBALUResult, emu.UsageRead)
	regMap.AddEntry("MEM_WB_DestReg", &s.memWBDestReg, emu.UsageRead)

	regMap.AddEntry("MEM_WB_ReadData", &s.memWBReadData, emu.UsageRead)

	regMap.AddEntry("MEM_WB_RAWrite", &s.memWBRAWrite, emu.UsageRead)
	regMap.AddEntry("MEM_WB_RAValue", &s.memWBRAValue, emu.UsageRead)

	regMap.AddEntry("WB_PC", &s.wbPC, emu.UsageWrite)
	regMap.AddEntry("WB_Instr", &s.wbInstr, emu.UsageWrite)

	regMap.AddEntry("RA", &s.ra, emu.UsageWrite)

	return emu.Tick
}

// Execute commits register results for the instruction in MEM/WB.
func (s *WriteBack) Execute(memory *emu.Memory) ([]emu.Delta, error) {
	regs := emu.NewRegReader(memory)

	deltas := []emu.Delta{
		emu.RegisterDelta(s.wbPC, regs.Read(s.memWBPC)),
		emu.RegisterDelta(s.wbInstr, regs.Read(s.memWBInstr)),
	}

	regWrite := regs.Read(s.memWBRegWrite)
	memRead := regs.Read(s.memWBMemRead)
	aluResult := regs.Read(s.memWBALUResult)
	destination := regs.Read(s.memWBDestReg)
	readData := regs.Read(s.memWBReadData)
	raWrite := regs.Read(s.memWBRAWrite)
	raValue := regs.Read(s.memWBRAValue)
	if err := regs.Err(); err != nil {
		return nil, err
	}

	if raWrite != 0 {
		deltas = append(deltas, emu.RegisterDelta(s.ra, raValue))
	}

	if regWrite != 0 && destination != 0 {
		value := aluResult
		if memRead != 0 {
			value = readData
		}
		deltas = append(deltas, emu.RegisterDelta(destination, value))
	}

	return deltas, nil
}
