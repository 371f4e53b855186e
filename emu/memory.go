package emu

import (
	"github.com/sarchlab/akita/v4/mem/mem"
)

// Well-known register indices. Indices 0 through 31 are the
// architectural MIPS registers, 32 is the program counter, and the
// pipeline registers assigned by the builder follow.
const (
	RegZero uint32 = 0
	RegRA   uint32 = 31
	RegPC   uint32 = 32

	// NumFixedRegisters is the count of architectural registers plus
	// the program counter; dynamic pipeline registers start here.
	NumFixedRegisters uint32 = 33
)

// Memory is the complete mutable state of the device at a point in
// time: the register file (architectural and pipeline registers) and
// the text and data segments. Segment bytes live in Akita storage
// components; capacity violations surface as ErrMemoryOutOfRange.
type Memory struct {
	registers []uint32

	text     *mem.Storage
	data     *mem.Storage
	textSize uint32
	dataSize uint32
}

// NewMemory creates a memory with the given number of additional
// (pipeline) registers and loads the two segments. The program counter
// starts at the beginning of the text segment.
func NewMemory(numAdditionalRegs uint32, text, data []byte) *Memory {
	m := &Memory{
		registers: make([]uint32, NumFixedRegisters+numAdditionalRegs),
		text:      mem.NewStorage(uint64(len(text))),
		data:      mem.NewStorage(uint64(len(data))),
		textSize:  uint32(len(text)),
		dataSize:  uint32(len(data)),
	}

	if len(text) > 0 {
		_ = m.text.Write(0, text)
	}
	if len(data) > 0 {
		_ = m.data.Write(0, data)
	}

	m.registers[RegPC] = TextAddress(0).Raw()

	return m
}

// NumRegisters returns the size of the register file.
func (m *Memory) NumRegisters() uint32 {
	return uint32(len(m.registers))
}

// TextSize returns the size of the text segment in bytes.
func (m *Memory) TextSize() uint32 {
	return m.textSize
}

// DataSize returns the size of the data segment in bytes.
func (m *Memory) DataSize() uint32 {
	return m.dataSize
}

func (m *Memory) segment(base SegmentBase) (*mem.Storage, uint32) {
	if base == DataBase {
		return m.data, m.dataSize
	}
	return m.text, m.textSize
}

// ReadRegister returns the value of the given register.
func (m *Memory) ReadRegister(idx uint32) (uint32, error) {
	if idx >= uint32(len(m.registers)) {
		return 0, ErrMemoryOutOfRange
	}
	return m.registers[idx], nil
}

// WriteRegister assigns a value to the given register. Writes to the
// zero register are silently ignored.
func (m *Memory) WriteRegister(idx uint32, value uint32) error {
	if idx >= uint32(len(m.registers)) {
		return ErrMemoryOutOfRange
	}
	if idx == RegZero {
		return nil
	}
	m.registers[idx] = value
	return nil
}

// ReadByte returns the byte at the given address. Bytes past the end
// of the segment read as zero.
func (m *Memory) ReadByte(address Address) byte {
	storage, size := m.segment(address.Base)
	if address.Offset >= size {
		return 0
	}
	bytes, err := storage.Read(uint64(address.Offset), 1)
	if err != nil {
		return 0
	}
	return bytes[0]
}

// WriteByte assigns a byte to the given memory location.
func (m *Memory) WriteByte(address Address, b byte) error {
	storage, size := m.segment(address.Base)
	if address.Offset >= size {
		return ErrMemoryOutOfRange
	}
	if err := storage.Write(uint64(address.Offset), []byte{b}); err != nil {
		return ErrMemoryOutOfRange
	}
	return nil
}

// ReadWord returns the big-endian word at the given address. A read
// straddling the end of the segment returns the bytes present, padded
// with zero on the low side.
func (m *Memory) ReadWord(address Address) uint32 {
	storage, size := m.segment(address.Base)
	if address.Offset >= size {
		return 0
	}

	count := size - address.Offset
	if count > 4 {
		count = 4
	}
	bytes, err := storage.Read(uint64(address.Offset), uint64(count))
	if err != nil {
		return 0
	}

	var word uint32
	for i, b := range bytes {
		word |= uint32(b) << (24 - 8*i)
	}
	return word
}

// WriteWord assigns a big-endian word to the given memory location.
// A write straddling the end of the segment fails.
func (m *Memory) WriteWord(address Address, word uint32) error {
	storage, size := m.segment(address.Base)
	if address.Offset >= size || size-address.Offset < 4 {
		return ErrMemoryOutOfRange
	}

	bytes := []byte{
		byte(word >> 24),
		byte(word >> 16),
		byte(word >> 8),
		byte(word),
	}
	if err := storage.Write(uint64(address.Offset), bytes); err != nil {
		return ErrMemoryOutOfRange
	}
	return nil
}

// RegReader reads registers from a memory snapshot, capturing the
// first error so stage code can read freely and check once.
type RegReader struct {
	memory *Memory
	err    error
}

// NewRegReader creates a register reader over the given memory.
func NewRegReader(memory *Memory) *RegReader {
	return &RegReader{memory: memory}
}

// Read returns the value of the given register, or zero after an
// earlier read failed.
func (r *RegReader) Read(idx uint32) uint32 {
	if r.err != nil {
		return 0
	}
	value, err := r.memory.ReadRegister(idx)
	if err != nil {
		r.err = err
		return 0
	}
	return value
}

// Err returns the first error encountered by Read.
func (r *RegReader) Err() error {
	return r.err
}
