package pipeline

import (
	"fmt"
	"io"

	"github.com/sarchlab/pipsim/emu"
)

// DefaultHandler observes the per-stage PCs and instruction words to
// decide termination, count retired instructions, and produce the
// PC/register/memory dumps.
type DefaultHandler struct {
	ifIDPC  uint32
	idEXPC  uint32
	exMemPC uint32
	memWBPC uint32
	wbPC    uint32

	ifIDInstr  uint32
	idEXInstr  uint32
	exMemInstr uint32
	memWBInstr uint32
	wbInstr    uint32
}

// NewDefaultHandler creates the handler.
func NewDefaultHandler() *DefaultHandler {
	return &DefaultHandler{}
}

// Initialize declares the registers the handler observes.
func (h *DefaultHandler) Initialize(regMap *emu.RegisterMap, _ *emu.SignalMap) {
	regMap.AddEntry("IF_ID_PC", &h.ifIDPC, emu.UsageRead)
	regMap.AddEntry("ID_EX_PC", &h.idEXPC, emu.UsageRead)
	regMap.AddEntry("EX_MEM_PC", &h.exMemPC, emu.UsageRead)
	regMap.AddEntry("MEM_WB_PC", &h.memWBPC, emu.UsageRead)
	regMap.AddEntry("WB_PC", &h.wbPC, emu.UsageRead)

	regMap.AddEntry("IF_ID_Instr", &h.ifIDInstr, emu.UsageRead)
	regMap.AddEntry("ID_EX_Instr", &h.idEXInstr, emu.UsageRead)
	regMap.AddEntry("EX_MEM_Instr", &h.exMemInstr, emu.UsageRead)
	regMap.AddEntry("MEM_WB_Instr", &h.memWBInstr, emu.UsageRead)
	regMap.AddEntry("WB_Instr", &h.wbInstr, emu.UsageRead)
}

// IsTerminated reports whether the last text instruction has passed
// write-back.
func (h *DefaultHandler) IsTerminated(memory *emu.Memory) bool {
	wbPC, err := memory.ReadRegister(h.wbPC)
	if err != nil {
		return false
	}
	wbInstr, err := memory.ReadRegister(h.wbInstr)
	if err != nil {
		return false
	}
	return wbInstr != 0 && wbPC+4 >= emu.TextAddress(memory.TextSize()).Raw()
}

// CalcNumInstructions returns 1 when the write-back stage holds a real
// instruction this cycle.
func (h *DefaultHandler) CalcNumInstructions(memory *emu.Memory) uint64 {
	wbPC, err := memory.ReadRegister(h.wbPC)
	if err != nil {
		return 0
	}
	wbInstr, err := memory.ReadRegister(h.wbInstr)
	if err != nil {
		return 0
	}
	if wbPC != 0 && wbInstr != 0 {
		return 1
	}
	return 0
}

// DumpPCs writes the pipeline PC state as {IF|ID|EX|MEM|WB}, leaving a
// slot empty when the stage holds no instruction.
func (h *DefaultHandler) DumpPCs(memory *emu.Memory, w io.Writer) {
	pcs := []uint32{h.ifIDPC, h.idEXPC, h.exMemPC, h.memWBPC, h.wbPC}
	instrs := []uint32{h.ifIDInstr, h.idEXInstr, h.exMemInstr, h.memWBInstr, h.wbInstr}

	fmt.Fprintf(w, "Current pipeline PC state:\n")

	for i := range pcs {
		if i == 0 {
			fmt.Fprint(w, "{")
		} else {
			fmt.Fprint(w, "|")
		}

		pc, _ := memory.ReadRegister(pcs[i])
		instr, _ := memory.ReadRegister(instrs[i])
		if pc != 0 && instr != 0 {
			fmt.Fprintf(w, "%x", pc)
		}
	}
	fmt.Fprint(w, "}\n")
}

// DumpRegisters writes the PC and the architectural registers.
func (h *DefaultHandler) DumpRegisters(memory *emu.Memory, w io.Writer) {
	pc, _ := memory.ReadRegister(emu.RegPC)

	fmt.Fprintf(w, "Current register values:\n")
	fmt.Fprintf(w, "------------------------------------\n")
	fmt.Fprintf(w, "PC: 0x%x\n", pc)
	fmt.Fprintf(w, "Registers:\n")

	for idx := uint32(0); idx < emu.RegPC; idx++ {
		value, _ := memory.ReadRegister(idx)
		fmt.Fprintf(w, "R%d: 0x%x\n", idx, value)
	}
}

// DumpMemory writes the words in the given inclusive range.
func (h *DefaultHandler) DumpMemory(memory *emu.Memory, r emu.Range, w io.Writer) error {
	if r.Begin.Raw() > r.End.Raw() {
		return fmt.Errorf("invalid memory range %v..%v", r.Begin, r.End)
	}

	fmt.Fprintf(w, "Memory content [%v..%v]:\n", r.Begin, r.End)
	fmt.Fprintf(w, "------------------------------------\n")

	for current := r.Begin.Raw(); current <= r.End.Raw(); current += 4 {
		address := emu.AddressFromRaw(current)
		fmt.Fprintf(w, "%v: 0x%x\n", address, memory.ReadWord(address))
	}

	return nil
}
