package pipeline

import (
	"github.com/sarchlab/pipsim/emu"
)

// InstructionFetch reads the instruction at the program counter into
// the IF/ID pipeline registers and advances the PC when the controller
// allows it.
type InstructionFetch struct {
	pc uint32

	ifIDPC     uint32
	ifIDNextPC uint32
	ifIDInstr  uint32

	nextPCType    uint32
	pipelineState uint32
}

// NewInstructionFetch creates the fetch stage.
func NewInstructionFetch() *InstructionFetch {
	return &InstructionFetch{}
}

// Initialize declares the stage's registers and signals.
func (s *InstructionFetch) Initialize(
	regMap *emu.RegisterMap,
	sigMap *emu.SignalMap,
) emu.TickTockType {
	regMap.AddEntry("PC", &s.pc, emu.UsageReadWrite)

	regMap.AddEntry("IF_ID_PC", &s.ifIDPC, emu.UsageWrite)
	regMap.AddEntry("IF_ID_NextPC", &s.ifIDNextPC, emu.UsageWrite)
	regMap.AddEntry("IF_ID_Instr", &s.ifIDInstr, emu.UsageWrite)

	sigMap.AddEntry("nextPCType", &s.nextPCType, emu.UsageRead)
	sigMap.AddEntry("pipelineState", &s.pipelineState, emu.UsageRead)

	return emu.NoPreference
}

// Execute fetches one instruction.
//
// Past the end of text it feeds a bubble into IF/ID so the pipeline
// drains, except while stalled: the stalled instruction must stay in
// IF/ID for its replay cycle. Within text, the IF/ID capture is
// guarded by pipelineState: Normal latches the fetch, Flushed and
// Flushed3 squash it to a bubble, Stalled leaves IF/ID untouched.
func (s *InstructionFetch) Execute(memory *emu.Memory) ([]emu.Delta, error) {
	pc, err := memory.ReadRegister(s.pc)
	if err != nil {
		return nil, err
	}

	textEnd := emu.TextAddress(memory.TextSize()).Raw()
	if pc >= textEnd {
		var deltas []emu.Delta
		for _, state := range []PipelineState{Normal, Flushed, Flushed3} {
			deltas = append(deltas,
				emu.ConditionedDelta(s.ifIDNextPC, 0, s.pipelineState, uint16(state)),
				emu.ConditionedDelta(s.ifIDInstr, 0, s.pipelineState, uint16(state)),
			)
		}
		return deltas, nil
	}

	instr := memory.ReadWord(emu.AddressFromRaw(pc))
	newPC := pc + 4

	deltas := []emu.Delta{
		emu.ConditionedDelta(s.pc, newPC, s.nextPCType, uint16(AdvancedPC)),

		emu.ConditionedDelta(s.ifIDPC, pc, s.pipelineState, uint16(Normal)),
		emu.ConditionedDelta(s.ifIDNextPC, newPC, s.pipelineState, uint16(Normal)),
		emu.ConditionedDelta(s.ifIDInstr, instr, s.pipelineState, uint16(Normal)),

		emu.ConditionedDelta(s.ifIDNextPC, 0, s.pipelineState, uint16(Flushed)),
		emu.ConditionedDelta(s.ifIDInstr, 0, s.pipelineState, uint16(Flushed)),

		emu.ConditionedDelta(s.ifIDNextPC, 0, s.pipelineState, uint16(Flushed3)),
		emu.ConditionedDelta(s.ifIDInstr, 0, s.pipelineState, uint16(Flushed3)),

		// Stalled: IF/ID is left untouched for the replay.
	}

	return deltas, nil
}
