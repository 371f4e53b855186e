package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipsim/emu"
)

var _ = Describe("RegisterMap", func() {
	var regMap emu.RegisterMap

	BeforeEach(func() {
		regMap = emu.RegisterMap{}
	})

	It("should bind well-known names immediately", func() {
		var pc, ra, zero uint32
		regMap.AddEntry("PC", &pc, emu.UsageReadWrite)
		regMap.AddEntry("RA", &ra, emu.UsageWrite)
		regMap.AddEntry("Zero", &zero, emu.UsageRead)

		Expect(pc).To(Equal(emu.RegPC))
		Expect(ra).To(Equal(emu.RegRA))
		Expect(zero).To(Equal(emu.RegZero))

		indices, err := regMap.Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(indices).To(BeEmpty())
	})

	It("should assign dense indices in insertion order", func() {
		var aWriter, aReader, bWriter, bReader uint32
		regMap.AddEntry("IF_ID_PC", &aWriter, emu.UsageWrite)
		regMap.AddEntry("IF_ID_Instr", &bWriter, emu.UsageWrite)
		regMap.AddEntry("IF_ID_PC", &aReader, emu.UsageRead)
		regMap.AddEntry("IF_ID_Instr", &bReader, emu.UsageRead)

		indices, err := regMap.Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(indices).To(HaveLen(2))
		Expect(indices["IF_ID_PC"]).To(Equal(emu.NumFixedRegisters))
		Expect(indices["IF_ID_Instr"]).To(Equal(emu.NumFixedRegisters + 1))

		Expect(aWriter).To(Equal(indices["IF_ID_PC"]))
		Expect(aReader).To(Equal(indices["IF_ID_PC"]))
		Expect(bWriter).To(Equal(indices["IF_ID_Instr"]))
		Expect(bReader).To(Equal(indices["IF_ID_Instr"]))
	})

	It("should back-patch read-write slots once", func() {
		var slot, reader uint32
		regMap.AddEntry("Counter", &slot, emu.UsageReadWrite)
		regMap.AddEntry("Counter", &reader, emu.UsageRead)

		_, err := regMap.Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(slot).To(Equal(emu.NumFixedRegisters))
	})

	It("should reject an entry nobody reads", func() {
		var slot uint32
		regMap.AddEntry("Orphan", &slot, emu.UsageWrite)

		_, err := regMap.Build()
		Expect(err).To(MatchError(emu.ErrUnreadEntry))
	})

	It("should reject an entry nobody writes", func() {
		var slot uint32
		regMap.AddEntry("Ghost", &slot, emu.UsageRead)

		_, err := regMap.Build()
		Expect(err).To(MatchError(emu.ErrUnwrittenEntry))
	})
})

var _ = Describe("SignalMap", func() {
	var sigMap emu.SignalMap

	BeforeEach(func() {
		sigMap = emu.SignalMap{}
	})

	It("should assign signal indices from zero", func() {
		var aWriter, aReader, bWriter, bReader uint32
		sigMap.AddEntry("nextPCType", &aWriter, emu.UsageWrite)
		sigMap.AddEntry("nextPCType", &aReader, emu.UsageRead)
		sigMap.AddEntry("pipelineState", &bWriter, emu.UsageWrite)
		sigMap.AddEntry("pipelineState", &bReader, emu.UsageRead)

		indices, err := sigMap.Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(indices["nextPCType"]).To(Equal(uint32(0)))
		Expect(indices["pipelineState"]).To(Equal(uint32(1)))
		Expect(aReader).To(Equal(uint32(0)))
		Expect(bReader).To(Equal(uint32(1)))
	})

	It("should reject a signal with two drivers", func() {
		var w1, w2, r uint32
		sigMap.AddEntry("mode", &w1, emu.UsageWrite)
		sigMap.AddEntry("mode", &w2, emu.UsageWrite)
		sigMap.AddEntry("mode", &r, emu.UsageRead)

		_, err := sigMap.Build()
		Expect(err).To(MatchError(emu.ErrAmbiguousSignal))
	})
})
