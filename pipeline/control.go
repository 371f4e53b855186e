// Package pipeline implements the five-stage MIPS datapath: the stage
// components, the hazard/branch-prediction controllers, and the
// default termination/dump handler. Stages communicate exclusively
// through named pipeline registers and conditioned deltas; the
// controllers drive the nextPCType and pipelineState signals that
// guard them.
package pipeline

import (
	"github.com/sarchlab/pipsim/emu"
	"github.com/sarchlab/pipsim/insts"
)

// NextPCType enumerates the values of the nextPCType signal, which
// selects the source of the program counter update for the cycle.
type NextPCType uint16

// nextPCType values.
const (
	// AdvancedPC lets fetch advance the PC sequentially.
	AdvancedPC NextPCType = iota

	// JumpResult redirects the PC to a jump target resolved in decode.
	JumpResult

	// BranchResultID redirects the PC to a branch target at decode
	// time (always-taken speculation).
	BranchResultID

	// BranchResultMemJump redirects the PC to a branch target resolved
	// at the memory stage (always-not-taken recovery).
	BranchResultMemJump

	// BranchResultMemRestore restores the PC to the branch
	// fall-through at the memory stage (always-taken recovery).
	BranchResultMemRestore

	// NotMutated leaves the PC unchanged for the cycle.
	NotMutated
)

// PipelineState enumerates the values of the pipelineState signal,
// which selects how the front of the pipeline advances.
type PipelineState uint16

// pipelineState values.
const (
	// Normal advances every stage.
	Normal PipelineState = iota

	// Stalled replays the instruction in IF/ID and bubbles decode.
	Stalled

	// Flushed squashes the in-flight fetch (one bubble).
	Flushed

	// Flushed3 squashes the in-flight fetch and the instructions in
	// IF/ID and ID/EX (misprediction shadow, three bubbles).
	Flushed3
)

// loadUseHazard reports whether the instruction word in IF/ID reads a
// register that the load in ID/EX is still fetching from memory.
func loadUseHazard(word, idEXMemRead, idEXReg2 uint32) bool {
	if idEXMemRead == 0 || idEXReg2 == 0 {
		return false
	}
	return insts.Rs(word) == idEXReg2 || insts.Rt(word) == idEXReg2
}

// ATPPipelineStateController drives nextPCType and pipelineState for
// the always-taken branch prediction policy: branches redirect the PC
// at decode, and the memory stage restores the fall-through when the
// branch turns out not taken.
type ATPPipelineStateController struct {
	ifIDInstr      uint32
	idEXMemRead    uint32
	idEXReg2       uint32
	exMemInstr     uint32
	exMemALUResult uint32

	nextPCType    uint32
	pipelineState uint32
}

// NewATPPipelineStateController creates the always-taken controller.
func NewATPPipelineStateController() *ATPPipelineStateController {
	return &ATPPipelineStateController{}
}

// Initialize declares the registers the controller observes and the
// signals it drives.
func (c *ATPPipelineStateController) Initialize(
	regMap *emu.RegisterMap,
	sigMap *emu.SignalMap,
) {
	regMap.AddEntry("IF_ID_Instr", &c.ifIDInstr, emu.UsageRead)
	regMap.AddEntry("ID_EX_MemRead", &c.idEXMemRead, emu.UsageRead)
	regMap.AddEntry("ID_EX_Reg2", &c.idEXReg2, emu.UsageRead)
	regMap.AddEntry("EX_MEM_Instr", &c.exMemInstr, emu.UsageRead)
	regMap.AddEntry("EX_MEM_ALUResult", &c.exMemALUResult, emu.UsageRead)

	sigMap.AddEntry("nextPCType", &c.nextPCType, emu.UsageWrite)
	sigMap.AddEntry("pipelineState", &c.pipelineState, emu.UsageWrite)
}

// Execute evaluates the policy for one cycle.
//
// Priority order: recovery of a mispredicted branch leaving the memory
// stage, then jumps, then the load-use stall, then a new branch
// redirect, then normal advance. The stall outranks the branch
// redirect so that a branch whose comparison operand is still being
// loaded waits for the MEM/WB forwarding path.
func (c *ATPPipelineStateController) Execute(memory *emu.Memory) ([]emu.Control, error) {
	regs := emu.NewRegReader(memory)

	exMemInstr := regs.Read(c.exMemInstr)
	exMemTaken := regs.Read(c.exMemALUResult)
	ifIDInstr := regs.Read(c.ifIDInstr)
	idEXMemRead := regs.Read(c.idEXMemRead)
	idEXReg2 := regs.Read(c.idEXReg2)
	if err := regs.Err(); err != nil {
		return nil, err
	}

	switch {
	case insts.IsBranch(exMemInstr) && exMemTaken == 0:
		return c.controls(BranchResultMemRestore, Flushed3), nil
	case insts.IsJump(ifIDInstr):
		return c.controls(JumpResult, Flushed), nil
	case loadUseHazard(ifIDInstr, idEXMemRead, idEXReg2):
		return c.controls(NotMutated, Stalled), nil
	case insts.IsBranch(ifIDInstr):
		return c.controls(BranchResultID, Flushed), nil
	default:
		return c.controls(AdvancedPC, Normal), nil
	}
}

func (c *ATPPipelineStateController) controls(
	pc NextPCType,
	state PipelineState,
) []emu.Control {
	return []emu.Control{
		{Signal: c.nextPCType, Value: uint16(pc)},
		{Signal: c.pipelineState, Value: uint16(state)},
	}
}

// ANTPPipelineStateController drives nextPCType and pipelineState for
// the always-not-taken branch prediction policy: branches fall through
// at fetch, and the memory stage redirects to the target when the
// branch turns out taken.
type ANTPPipelineStateController struct {
	ifIDInstr      uint32
	idEXMemRead    uint32
	idEXReg2       uint32
	exMemInstr     uint32
	exMemALUResult uint32

	nextPCType    uint32
	pipelineState uint32
}

// NewANTPPipelineStateController creates the always-not-taken
// controller.
func NewANTPPipelineStateController() *ANTPPipelineStateController {
	return &ANTPPipelineStateController{}
}

// Initialize declares the registers the controller observes and the
// signals it drives.
func (c *ANTPPipelineStateController) Initialize(
	regMap *emu.RegisterMap,
	sigMap *emu.SignalMap,
) {
	regMap.AddEntry("IF_ID_Instr", &c.ifIDInstr, emu.UsageRead)
	regMap.AddEntry("ID_EX_MemRead", &c.idEXMemRead, emu.UsageRead)
	regMap.AddEntry("ID_EX_Reg2", &c.idEXReg2, emu.UsageRead)
	regMap.AddEntry("EX_MEM_Instr", &c.exMemInstr, emu.UsageRead)
	regMap.AddEntry("EX_MEM_ALUResult", &c.exMemALUResult, emu.UsageRead)

	sigMap.AddEntry("nextPCType", &c.nextPCType, emu.UsageWrite)
	sigMap.AddEntry("pipelineState", &c.pipelineState, emu.UsageWrite)
}

// Execute evaluates the policy for one cycle. A taken branch leaving
// the memory stage squashes the three fall-through slots behind it;
// not-taken branches need no recovery.
func (c *ANTPPipelineStateController) Execute(memory *emu.Memory) ([]emu.Control, error) {
	regs := emu.NewRegReader(memory)

	exMemInstr := regs.Read(c.exMemInstr)
	exMemTaken := regs.Read(c.exMemALUResult)
	ifIDInstr := regs.Read(c.ifIDInstr)
	idEXMemRead := regs.Read(c.idEXMemRead)
	idEXReg2 := regs.Read(c.idEXReg2)
	if err := regs.Err(); err != nil {
		return nil, err
	}

	switch {
	case insts.IsBranch(exMemInstr) && exMemTaken != 0:
		return c.controls(BranchResultMemJump, Flushed3), nil
	case insts.IsJump(ifIDInstr):
		return c.controls(JumpResult, Flushed), nil
	case loadUseHazard(ifIDInstr, idEXMemRead, idEXReg2):
		return c.controls(NotMutated, Stalled), nil
	default:
		return c.controls(AdvancedPC, Normal), nil
	}
}

func (c *ANTPPipelineStateController) controls(
	pc NextPCType,
	state PipelineState,
) []emu.Control {
	return []emu.Control{
		{Signal: c.nextPCType, Value: uint16(pc)},
		{Signal: c.pipelineState, Value: uint16(state)},
	}
}
