package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipsim/emu"
	"github.com/sarchlab/pipsim/insts"
)

// Each program runs under both predictors. Architectural results must
// agree; cycle counts differ with the prediction policy.

var _ = Describe("Pipeline", func() {
	predictors := map[string]bool{
		"always-taken":     true,
		"always-not-taken": false,
	}

	for name, alwaysTaken := range predictors {
		alwaysTaken := alwaysTaken

		Context("with the "+name+" predictor", func() {
			It("should execute an ALU chain with full forwarding", func() {
				text := words(
					iformat(insts.OpADDIU, 0, 1, 0x00FF), // r1 = 0xFF
					rformat(insts.FnADDU, 1, 1, 2, 0),    // r2 = r1+r1
					rformat(insts.FnSLL, 0, 2, 3, 4),     // r3 = r2<<4
					iformat(insts.OpORI, 3, 4, 0x000F),   // r4 = r3|0xF
					iformat(insts.OpANDI, 4, 5, 0x0FF0),  // r5 = r4&0xFF0
					rformat(insts.FnSRL, 0, 5, 6, 4),     // r6 = r5>>4
					rformat(insts.FnAND, 6, 6, 7, 0),     // r7 = r6&r6
					rformat(insts.FnNOR, 7, 7, 8, 0),     // r8 = ^(r7|r7)
					rformat(insts.FnSLTU, 0, 8, 9, 0),    // r9 = 0 < r8
					iformat(insts.OpSLTIU, 9, 10, 5),     // r10 = r9 < 5
					rformat(insts.FnSUBU, 0, 10, 11, 0),  // r11 = 0-r10
					iformat(insts.OpADDIU, 11, 0, 7),     // write to R0, ignored
				)

				m := newMachine(alwaysTaken, text, nil)
				cycles := m.run()

				Expect(m.reg(1)).To(Equal(uint32(0x00FF)))
				Expect(m.reg(2)).To(Equal(uint32(0x01FE)))
				Expect(m.reg(3)).To(Equal(uint32(0x1FE0)))
				Expect(m.reg(4)).To(Equal(uint32(0x1FEF)))
				Expect(m.reg(5)).To(Equal(uint32(0x0FE0)))
				Expect(m.reg(6)).To(Equal(uint32(0x00FE)))
				Expect(m.reg(7)).To(Equal(uint32(0x00FE)))
				Expect(m.reg(8)).To(Equal(uint32(0xFFFFFF01)))
				Expect(m.reg(9)).To(Equal(uint32(1)))
				Expect(m.reg(10)).To(Equal(uint32(1)))
				Expect(m.reg(11)).To(Equal(uint32(0xFFFFFFFF)))
				Expect(m.reg(0)).To(Equal(uint32(0)), "R0 must stay zero")

				Expect(m.emulator.InstructionCount()).To(Equal(uint64(12)))
				Expect(cycles).To(Equal(uint64(16)), "12 instructions, no stalls")
			})

			It("should stall on load-use hazards and forward store data", func() {
				text := words(
					iformat(insts.OpLUI, 0, 10, 0x1000), // r10 = 0x10000000
					iformat(insts.OpLW, 10, 9, 0),       // r9 = word[0]
					iformat(insts.OpSW, 10, 9, 4),       // word[4] = r9 (stall)
					iformat(insts.OpSW, 10, 9, 8),       // word[8] = r9
					iformat(insts.OpLB, 10, 8, 0),       // r8 = sext byte[0]
					iformat(insts.OpSB, 10, 8, 3),       // byte[3] = r8 (stall)
				)
				data := words(0xABCDEF00, 0, 0)

				m := newMachine(alwaysTaken, text, data)
				cycles := m.run()

				Expect(m.reg(10)).To(Equal(uint32(0x10000000)))
				Expect(m.reg(9)).To(Equal(uint32(0xABCDEF00)))
				Expect(m.reg(8)).To(Equal(uint32(0xFFFFFFAB)), "LB sign-extends")

				Expect(m.dataWord(0)).To(Equal(uint32(0xABCDEFAB)))
				Expect(m.dataWord(4)).To(Equal(uint32(0xABCDEF00)))
				Expect(m.dataWord(8)).To(Equal(uint32(0xABCDEF00)))

				Expect(m.emulator.InstructionCount()).To(Equal(uint64(6)))
				Expect(cycles).To(Equal(uint64(12)), "6 instructions plus 2 stalls")
			})

			It("should run a countdown loop across taken and not-taken branches", func() {
				text := words(
					iformat(insts.OpADDIU, 0, 9, 0xFFFA), // r9 = -6
					iformat(insts.OpADDIU, 0, 8, 5),      // r8 = 5
					iformat(insts.OpADDIU, 8, 8, 0xFFFF), // loop: r8 -= 1
					iformat(insts.OpBNE, 8, 9, 0xFFFE),   // until r8 == r9
					iformat(insts.OpADDIU, 0, 10, 1),     // r10 = 1
				)

				m := newMachine(alwaysTaken, text, nil)
				cycles := m.run()

				Expect(m.reg(8)).To(Equal(uint32(0xFFFFFFFA)))
				Expect(m.reg(9)).To(Equal(uint32(0xFFFFFFFA)))
				Expect(m.reg(10)).To(Equal(uint32(1)))

				// 2 setup + 11 iterations of 2 + 1 tail.
				Expect(m.emulator.InstructionCount()).To(Equal(uint64(25)))

				if alwaysTaken {
					// 10 correct taken predictions cost one bubble each;
					// the final not-taken branch costs three.
					Expect(cycles).To(Equal(uint64(42)))
				} else {
					// 10 mispredicted taken branches cost three bubbles
					// each; the final not-taken branch is free.
					Expect(cycles).To(Equal(uint64(59)))
				}
			})

			It("should follow J, JAL, and JR", func() {
				text := words(
					jformat(insts.OpJAL, 0x100004),       // call 0x400010
					iformat(insts.OpADDIU, 8, 8, 7),      // r8 += 7 (after return)
					jformat(insts.OpJ, 0x100006),         // jump to 0x400018
					iformat(insts.OpADDIU, 8, 8, 100),    // never executed
					iformat(insts.OpADDIU, 0, 8, 3),      // callee: r8 = 3
					rformat(insts.FnJR, 31, 0, 0, 0),     // return
					iformat(insts.OpADDIU, 0, 9, 1),      // r9 = 1
				)

				m := newMachine(alwaysTaken, text, nil)
				cycles := m.run()

				Expect(m.reg(8)).To(Equal(uint32(10)))
				Expect(m.reg(9)).To(Equal(uint32(1)))
				Expect(m.reg(31)).To(Equal(uint32(0x00400004)), "JAL links the return address")

				Expect(m.emulator.InstructionCount()).To(Equal(uint64(6)))
				Expect(cycles).To(Equal(uint64(13)), "each jump costs one bubble")
			})

			It("should squash the fall-through of a taken branch", func() {
				text := words(
					iformat(insts.OpADDIU, 0, 8, 1),  // r8 = 1
					iformat(insts.OpBEQ, 0, 0, 2),    // always taken, to 0x400010
					iformat(insts.OpADDIU, 0, 5, 11), // squashed
					iformat(insts.OpADDIU, 0, 6, 22), // squashed
					iformat(insts.OpADDIU, 0, 9, 7),  // target: r9 = 7
				)

				m := newMachine(alwaysTaken, text, nil)
				cycles := m.run()

				Expect(m.reg(8)).To(Equal(uint32(1)))
				Expect(m.reg(5)).To(Equal(uint32(0)))
				Expect(m.reg(6)).To(Equal(uint32(0)))
				Expect(m.reg(9)).To(Equal(uint32(7)))

				Expect(m.emulator.InstructionCount()).To(Equal(uint64(3)))

				if alwaysTaken {
					Expect(cycles).To(Equal(uint64(8)), "correct prediction, one bubble")
				} else {
					Expect(cycles).To(Equal(uint64(10)), "mispredict resolved at MEM")
				}
			})

			It("should fall through a not-taken branch", func() {
				text := words(
					iformat(insts.OpADDIU, 0, 8, 1),  // r8 = 1
					iformat(insts.OpBNE, 0, 0, 2),    // never taken
					iformat(insts.OpADDIU, 0, 5, 11), // r5 = 11
					iformat(insts.OpADDIU, 0, 6, 22), // r6 = 22
					iformat(insts.OpADDIU, 0, 9, 7),  // r9 = 7
				)

				m := newMachine(alwaysTaken, text, nil)
				cycles := m.run()

				Expect(m.reg(8)).To(Equal(uint32(1)))
				Expect(m.reg(5)).To(Equal(uint32(11)))
				Expect(m.reg(6)).To(Equal(uint32(22)))
				Expect(m.reg(9)).To(Equal(uint32(7)))

				Expect(m.emulator.InstructionCount()).To(Equal(uint64(5)))

				if alwaysTaken {
					Expect(cycles).To(Equal(uint64(12)), "mispredicted taken, restored at MEM")
				} else {
					Expect(cycles).To(Equal(uint64(9)), "correct fall-through, no bubbles")
				}
			})

			It("should walk a string with a load-compare loop", func() {
				text := words(
					iformat(insts.OpADDIU, 0, 8, 0),      // r8 = length
					iformat(insts.OpLUI, 0, 10, 0x1000),  // r10 = string base
					iformat(insts.OpLB, 10, 9, 0),        // loop: r9 = *r10
					iformat(insts.OpBEQ, 9, 0, 4),        // if NUL, to 0x400020
					iformat(insts.OpADDIU, 8, 8, 1),      // r8 += 1
					iformat(insts.OpADDIU, 10, 10, 1),    // r10 += 1
					jformat(insts.OpJ, 0x100002),         // back to loop
					iformat(insts.OpADDIU, 0, 12, 99),    // never executed
					iformat(insts.OpADDIU, 0, 11, 1),     // end: r11 = 1
				)
				data := words(0x48692100) // "Hi!\0"

				m := newMachine(alwaysTaken, text, data)
				m.run()

				Expect(m.reg(8)).To(Equal(uint32(3)), "strlen(\"Hi!\")")
				Expect(m.reg(9)).To(Equal(uint32(0)), "last byte loaded is NUL")
				Expect(m.reg(10)).To(Equal(uint32(0x10000003)))
				Expect(m.reg(11)).To(Equal(uint32(1)))
				Expect(m.reg(12)).To(Equal(uint32(0)), "jump shadow must not execute")

				// 2 setup + 3 iterations of 5 + the final lb/beq + tail.
				Expect(m.emulator.InstructionCount()).To(Equal(uint64(20)))
			})

			It("should stay terminated once terminated", func() {
				text := words(iformat(insts.OpADDIU, 0, 8, 1))

				m := newMachine(alwaysTaken, text, nil)
				m.run()

				Expect(m.emulator.IsTerminated(m.memory)).To(BeTrue())
				for i := 0; i < 3; i++ {
					Expect(m.emulator.Tick(m.memory)).To(Equal(emu.TickAlreadyTerminated))
					Expect(m.emulator.IsTerminated(m.memory)).To(BeTrue())
				}
				Expect(m.reg(8)).To(Equal(uint32(1)))
			})
		})
	}
})
