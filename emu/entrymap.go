package emu

import "fmt"

// NamedEntryUsage identifies how a component uses a named entry.
type NamedEntryUsage uint8

// Usage kinds. ReadWrite declares both.
const (
	UsageRead      NamedEntryUsage = 0b01
	UsageWrite     NamedEntryUsage = 0b10
	UsageReadWrite NamedEntryUsage = UsageRead | UsageWrite
)

type namedEntry struct {
	readBy    []*uint32
	writtenBy []*uint32
}

// NamedEntryMap assigns stable numeric indices to named entries.
// Components declare names during Initialize together with a pointer
// to a local index slot; Build resolves every name to a dense index in
// insertion order and back-patches all declared slots.
type NamedEntryMap struct {
	order   []string
	entries map[string]*namedEntry
}

// AddEntry declares a named entry. The slot pointer is recorded in the
// reader and/or writer lists according to usage and receives the
// entry's index when Build runs.
func (m *NamedEntryMap) AddEntry(name string, slot *uint32, usage NamedEntryUsage) {
	if m.entries == nil {
		m.entries = make(map[string]*namedEntry)
	}

	entry, ok := m.entries[name]
	if !ok {
		entry = &namedEntry{}
		m.entries[name] = entry
		m.order = append(m.order, name)
	}

	if usage&UsageRead != 0 {
		entry.readBy = append(entry.readBy, slot)
	}
	if usage&UsageWrite != 0 {
		entry.writtenBy = append(entry.writtenBy, slot)
	}
}

// build assigns indices starting at offset, writes them to every
// declared slot, and returns the name-to-index mapping. Every entry
// must have at least one reader and one writer.
func (m *NamedEntryMap) build(kind string, offset uint32) (map[string]uint32, error) {
	indices := make(map[string]uint32, len(m.order))

	idx := offset
	for _, name := range m.order {
		entry := m.entries[name]

		if len(entry.readBy) == 0 {
			return nil, fmt.Errorf("%s %q: %w", kind, name, ErrUnreadEntry)
		}
		if len(entry.writtenBy) == 0 {
			return nil, fmt.Errorf("%s %q: %w", kind, name, ErrUnwrittenEntry)
		}

		indices[name] = idx
		for _, slot := range entry.readBy {
			*slot = idx
		}
		for _, slot := range entry.writtenBy {
			*slot = idx
		}
		idx++
	}

	return indices, nil
}

// RegisterMap assigns indices to named pipeline registers. The
// well-known names "PC", "RA", and "Zero" are pre-bound to their fixed
// indices and never enter the dynamic index space.
type RegisterMap struct {
	NamedEntryMap
}

// AddEntry declares a named register, resolving well-known names
// immediately.
func (m *RegisterMap) AddEntry(name string, slot *uint32, usage NamedEntryUsage) {
	switch name {
	case "PC":
		*slot = RegPC
	case "RA":
		*slot = RegRA
	case "Zero":
		*slot = RegZero
	default:
		m.NamedEntryMap.AddEntry(name, slot, usage)
	}
}

// Build assigns dynamic register indices, starting after the fixed
// register file.
func (m *RegisterMap) Build() (map[string]uint32, error) {
	return m.build("register", NumFixedRegisters)
}

// SignalMap assigns indices to named control signals.
type SignalMap struct {
	NamedEntryMap
}

// Build assigns signal indices starting at zero. A signal driven by
// more than one controller is rejected.
func (m *SignalMap) Build() (map[string]uint32, error) {
	for _, name := range m.order {
		if len(m.entries[name].writtenBy) > 1 {
			return nil, fmt.Errorf("signal %q: %w", name, ErrAmbiguousSignal)
		}
	}
	return m.build("signal", 0)
}
