package emu

// EmulatorBuilder collects datapath, controller, and handler
// components, runs their Initialize hooks against the shared register
// and signal maps, and produces a wired Emulator/Memory pair.
type EmulatorBuilder struct {
	datapaths []Datapath
	phases    []TickTockType

	controllers []Controller
	handler     Handler

	regMap RegisterMap
	sigMap SignalMap
}

// NewEmulatorBuilder creates an empty builder.
func NewEmulatorBuilder() *EmulatorBuilder {
	return &EmulatorBuilder{}
}

// AddDatapath adds a pipeline stage and initializes it.
func (b *EmulatorBuilder) AddDatapath(datapath Datapath) *EmulatorBuilder {
	phase := datapath.Initialize(&b.regMap, &b.sigMap)
	b.datapaths = append(b.datapaths, datapath)
	b.phases = append(b.phases, phase)
	return b
}

// AddController adds a control-unit component and initializes it.
func (b *EmulatorBuilder) AddController(controller Controller) *EmulatorBuilder {
	controller.Initialize(&b.regMap, &b.sigMap)
	b.controllers = append(b.controllers, controller)
	return b
}

// AddHandler sets the termination/dump collaborator and initializes
// it.
func (b *EmulatorBuilder) AddHandler(handler Handler) *EmulatorBuilder {
	handler.Initialize(&b.regMap, &b.sigMap)
	b.handler = handler
	return b
}

// Build validates register and signal wiring, back-patches every
// component's index slots, and constructs the emulator together with a
// memory loaded from the given segment images.
func (b *EmulatorBuilder) Build(text, data []byte) (*Emulator, *Memory, error) {
	if b.handler == nil {
		return nil, nil, ErrNoHandler
	}

	registers, err := b.regMap.Build()
	if err != nil {
		return nil, nil, err
	}
	signals, err := b.sigMap.Build()
	if err != nil {
		return nil, nil, err
	}

	memory := NewMemory(uint32(len(registers)), text, data)

	emulator := &Emulator{
		tickDatapaths:   b.filterDatapaths(Tick),
		tockDatapaths:   append(b.filterDatapaths(NoPreference), b.filterDatapaths(Tock)...),
		controllers:     b.controllers,
		handler:         b.handler,
		registerIndices: registers,
		signalIndices:   signals,
		controls:        make([]uint16, len(signals)),
	}

	return emulator, memory, nil
}

func (b *EmulatorBuilder) filterDatapaths(phase TickTockType) []Datapath {
	var filtered []Datapath
	for i, datapath := range b.datapaths {
		if b.phases[i] == phase {
			filtered = append(filtered, datapath)
		}
	}
	return filtered
}
