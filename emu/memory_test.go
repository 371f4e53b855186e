package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipsim/emu"
)

var _ = Describe("Address", func() {
	It("should decompose raw data addresses", func() {
		address := emu.AddressFromRaw(0x10000008)
		Expect(address.Base).To(Equal(emu.DataBase))
		Expect(address.Offset).To(Equal(uint32(8)))
	})

	It("should decompose raw text addresses", func() {
		address := emu.AddressFromRaw(0x00400004)
		Expect(address.Base).To(Equal(emu.TextBase))
		Expect(address.Offset).To(Equal(uint32(4)))
	})

	It("should round-trip through the raw form", func() {
		Expect(emu.AddressFromRaw(emu.TextAddress(0x20).Raw())).
			To(Equal(emu.TextAddress(0x20)))
		Expect(emu.AddressFromRaw(emu.DataAddress(0x14).Raw())).
			To(Equal(emu.DataAddress(0x14)))
	})

	It("should advance to the next word", func() {
		Expect(emu.TextAddress(0).Next()).To(Equal(emu.TextAddress(4)))
	})

	It("should parse raw hex addresses", func() {
		address, err := emu.ParseAddress("0x10000000")
		Expect(err).NotTo(HaveOccurred())
		Expect(address).To(Equal(emu.DataAddress(0)))

		_, err = emu.ParseAddress("zz")
		Expect(err).To(HaveOccurred())
	})

	It("should format as raw hex", func() {
		Expect(emu.TextAddress(0).String()).To(Equal("0x400000"))
	})
})

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		text := make([]byte, 16)
		data := make([]byte, 10)
		memory = emu.NewMemory(2, text, data)
	})

	It("should size the register file with the extra registers", func() {
		Expect(memory.NumRegisters()).To(Equal(uint32(35)))
	})

	It("should start the PC at the beginning of text", func() {
		pc, err := memory.ReadRegister(emu.RegPC)
		Expect(err).NotTo(HaveOccurred())
		Expect(pc).To(Equal(uint32(0x00400000)))
	})

	It("should ignore writes to the zero register", func() {
		Expect(memory.WriteRegister(emu.RegZero, 42)).To(Succeed())
		value, err := memory.ReadRegister(emu.RegZero)
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal(uint32(0)))
	})

	It("should fail register access past the register file", func() {
		_, err := memory.ReadRegister(35)
		Expect(err).To(MatchError(emu.ErrMemoryOutOfRange))
		Expect(memory.WriteRegister(35, 1)).To(MatchError(emu.ErrMemoryOutOfRange))
	})

	It("should round-trip words in big endian", func() {
		address := emu.DataAddress(4)
		Expect(memory.WriteWord(address, 0x11223344)).To(Succeed())
		Expect(memory.ReadWord(address)).To(Equal(uint32(0x11223344)))
		Expect(memory.ReadByte(address)).To(Equal(byte(0x11)))
		Expect(memory.ReadByte(emu.DataAddress(7))).To(Equal(byte(0x44)))
	})

	It("should round-trip bytes", func() {
		Expect(memory.WriteByte(emu.DataAddress(9), 0xAB)).To(Succeed())
		Expect(memory.ReadByte(emu.DataAddress(9))).To(Equal(byte(0xAB)))
	})

	It("should read zero past the end of a segment", func() {
		Expect(memory.ReadByte(emu.DataAddress(10))).To(Equal(byte(0)))
		Expect(memory.ReadWord(emu.DataAddress(100))).To(Equal(uint32(0)))
	})

	It("should pad straddling word reads with zero on the low side", func() {
		Expect(memory.WriteByte(emu.DataAddress(8), 0x12)).To(Succeed())
		Expect(memory.WriteByte(emu.DataAddress(9), 0x34)).To(Succeed())
		Expect(memory.ReadWord(emu.DataAddress(8))).To(Equal(uint32(0x12340000)))
	})

	It("should fail word writes straddling the end of a segment", func() {
		Expect(memory.WriteWord(emu.DataAddress(8), 1)).
			To(MatchError(emu.ErrMemoryOutOfRange))
		Expect(memory.WriteWord(emu.DataAddress(10), 1)).
			To(MatchError(emu.ErrMemoryOutOfRange))
	})

	It("should fail byte writes past the end of a segment", func() {
		Expect(memory.WriteByte(emu.DataAddress(10), 1)).
			To(MatchError(emu.ErrMemoryOutOfRange))
	})

	It("should load the initial segment images", func() {
		memory = emu.NewMemory(0, []byte{0xDE, 0xAD, 0xBE, 0xEF}, nil)
		Expect(memory.ReadWord(emu.TextAddress(0))).To(Equal(uint32(0xDEADBEEF)))
		Expect(memory.TextSize()).To(Equal(uint32(4)))
		Expect(memory.DataSize()).To(Equal(uint32(0)))
	})
})

var _ = Describe("RegReader", func() {
	It("should capture the first error and return zero after it", func() {
		memory := emu.NewMemory(0, nil, nil)
		Expect(memory.WriteRegister(5, 7)).To(Succeed())

		regs := emu.NewRegReader(memory)
		Expect(regs.Read(5)).To(Equal(uint32(7)))
		Expect(regs.Read(1000)).To(Equal(uint32(0)))
		Expect(regs.Read(5)).To(Equal(uint32(0)))
		Expect(regs.Err()).To(MatchError(emu.ErrMemoryOutOfRange))
	})
})
