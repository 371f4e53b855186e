package emu

import "io"

// TickTockType selects the half of the cycle a datapath executes in.
type TickTockType int

// Cycle halves. Tick datapaths see the pre-cycle snapshot; tock and
// no-preference datapaths see the state after the tick commit.
const (
	NoPreference TickTockType = iota
	Tick
	Tock
)

// Datapath is a pipeline stage. Initialize declares every named
// register and signal the stage uses and elects the half of the cycle
// it executes in; the indices are back-patched when the builder runs.
// Execute reads a memory snapshot and returns the stage's deltas for
// the cycle.
type Datapath interface {
	Initialize(regMap *RegisterMap, sigMap *SignalMap) TickTockType
	Execute(memory *Memory) ([]Delta, error)
}

// Controller is a control-unit component. It declares the registers it
// reads and the signals it drives during Initialize, and emits the
// signal values for the cycle from Execute.
type Controller interface {
	Initialize(regMap *RegisterMap, sigMap *SignalMap)
	Execute(memory *Memory) ([]Control, error)
}

// Handler is the termination and dumping collaborator. It observes the
// pipeline through named registers declared during Initialize.
type Handler interface {
	Initialize(regMap *RegisterMap, sigMap *SignalMap)

	// IsTerminated reports whether the program has finished.
	IsTerminated(memory *Memory) bool

	// CalcNumInstructions returns the number of instructions retired
	// this cycle, 0 or 1.
	CalcNumInstructions(memory *Memory) uint64

	// DumpPCs writes the per-stage program counters.
	DumpPCs(memory *Memory, w io.Writer)

	// DumpRegisters writes the architectural register contents.
	DumpRegisters(memory *Memory, w io.Writer)

	// DumpMemory writes the words in the given inclusive range.
	DumpMemory(memory *Memory, r Range, w io.Writer) error
}
