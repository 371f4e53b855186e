package emu

import "errors"

// Build-time wiring errors.
var (
	// ErrUnreadEntry indicates a named register or signal that no
	// component reads.
	ErrUnreadEntry = errors.New("entry is not read")

	// ErrUnwrittenEntry indicates a named register or signal that no
	// component writes.
	ErrUnwrittenEntry = errors.New("entry is not written")

	// ErrAmbiguousSignal indicates a signal driven by more than one
	// controller.
	ErrAmbiguousSignal = errors.New("signal is driven by multiple controllers")

	// ErrNoHandler indicates the builder was used without a handler.
	ErrNoHandler = errors.New("no handler is given")
)

// ErrMemoryOutOfRange indicates an access past the register file or a
// word/byte write past the end of a segment.
var ErrMemoryOutOfRange = errors.New("memory access out of range")
