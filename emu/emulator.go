package emu

import "errors"

// TickResult is the outcome of one clock cycle.
type TickResult int

// Tick outcomes.
const (
	// TickSuccess indicates the cycle committed normally.
	TickSuccess TickResult = iota

	// TickAlreadyTerminated indicates the program had finished before
	// the cycle started; memory was not mutated.
	TickAlreadyTerminated

	// TickMemoryOutOfRange indicates an instruction referenced invalid
	// memory during the cycle.
	TickMemoryOutOfRange

	// TickUnknownError indicates any other runtime fault.
	TickUnknownError
)

// String returns a human-readable form of the result.
func (r TickResult) String() string {
	switch r {
	case TickSuccess:
		return "success"
	case TickAlreadyTerminated:
		return "already terminated"
	case TickMemoryOutOfRange:
		return "memory access out of range"
	default:
		return "unknown error"
	}
}

// Emulator owns the datapath, controller, and handler components and
// drives them through clock cycles. Apart from the scratch control
// buffer and the retired-instruction counter it is immutable after
// Build; all device state lives in the Memory.
type Emulator struct {
	tickDatapaths []Datapath

	// tockDatapaths holds the no-preference datapaths followed by the
	// tock datapaths, in registration order.
	tockDatapaths []Datapath

	controllers []Controller
	handler     Handler

	registerIndices map[string]uint32
	signalIndices   map[string]uint32

	controls         []uint16
	instructionCount uint64
}

// Handler returns the termination/dump collaborator.
func (e *Emulator) Handler() Handler {
	return e.handler
}

// InstructionCount returns the number of instructions retired so far.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// RegisterIndex resolves a named register to its index.
func (e *Emulator) RegisterIndex(name string) (uint32, bool) {
	idx, ok := e.registerIndices[name]
	return idx, ok
}

// SignalIndex resolves a named signal to its index.
func (e *Emulator) SignalIndex(name string) (uint32, bool) {
	idx, ok := e.signalIndices[name]
	return idx, ok
}

// IsTerminated reports whether the program has finished.
func (e *Emulator) IsTerminated(memory *Memory) bool {
	return e.handler.IsTerminated(memory)
}

// Tick runs one clock cycle against the given memory.
//
// The cycle evaluates every controller over the pre-cycle state to
// populate the signal buffer, runs the tick datapaths over the same
// snapshot and commits their deltas, then runs the no-preference and
// tock datapaths over the post-tick state and commits again. Within a
// phase, deltas apply in component registration order (in the second
// phase, all no-preference datapaths before all tock datapaths) and,
// per component, in emission order; the last write to a target wins.
func (e *Emulator) Tick(memory *Memory) TickResult {
	if e.handler.IsTerminated(memory) {
		return TickAlreadyTerminated
	}

	for i := range e.controls {
		e.controls[i] = 0
	}
	for _, controller := range e.controllers {
		controls, err := controller.Execute(memory)
		if err != nil {
			return tickResultOf(err)
		}
		for _, control := range controls {
			e.controls[control.Signal] = control.Value
		}
	}

	if result := e.runPhase(memory, e.tickDatapaths); result != TickSuccess {
		return result
	}

	if result := e.runPhase(memory, e.tockDatapaths); result != TickSuccess {
		return result
	}

	e.instructionCount += e.handler.CalcNumInstructions(memory)

	return TickSuccess
}

// runPhase evaluates the given datapaths over the current memory and
// commits their deltas.
func (e *Emulator) runPhase(memory *Memory, datapaths []Datapath) TickResult {
	deltaLists := make([][]Delta, 0, len(datapaths))
	for _, datapath := range datapaths {
		deltas, err := datapath.Execute(memory)
		if err != nil {
			return tickResultOf(err)
		}
		deltaLists = append(deltaLists, deltas)
	}

	if err := applyDeltas(memory, e.controls, deltaLists); err != nil {
		return tickResultOf(err)
	}
	return TickSuccess
}

// applyDeltas commits delta lists in order against the memory.
func applyDeltas(memory *Memory, controls []uint16, deltaLists [][]Delta) error {
	for _, deltas := range deltaLists {
		for _, delta := range deltas {
			switch delta.Type {
			case DeltaRegister:
				if err := memory.WriteRegister(delta.Target, delta.Value); err != nil {
					return err
				}
			case DeltaConditioned:
				if controls[delta.Signal] != delta.Condition {
					continue
				}
				if err := memory.WriteRegister(delta.Target, delta.Value); err != nil {
					return err
				}
			case DeltaMemoryWord:
				address := AddressFromRaw(delta.Target)
				if err := memory.WriteWord(address, delta.Value); err != nil {
					return err
				}
			case DeltaMemoryByte:
				address := AddressFromRaw(delta.Target)
				if err := memory.WriteByte(address, byte(delta.Value)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func tickResultOf(err error) TickResult {
	if errors.Is(err, ErrMemoryOutOfRange) {
		return TickMemoryOutOfRange
	}
	return TickUnknownError
}
