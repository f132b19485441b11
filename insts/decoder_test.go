package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/legv8/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("R-format arithmetic", func() {
		It("decodes ADD X1, X2, X3", func() {
			word, err := insts.Encode(insts.TagADD, &insts.Instruction{Rd: 1, Rn: 2, Rm: 3})
			Expect(err).NotTo(HaveOccurred())

			inst, err := decoder.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Tag).To(Equal(insts.TagADD))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rn).To(Equal(uint8(2)))
			Expect(inst.Rm).To(Equal(uint8(3)))
		})

		It("decodes SUBS, which sets flags", func() {
			codec, ok := insts.Lookup("SUBS")
			Expect(ok).To(BeTrue())
			Expect(codec.SetsFlags).To(BeTrue())
		})
	})

	Describe("FP family sharing an opcode range", func() {
		It("tells FADDS and FADDD apart by shamt alone", func() {
			sWord, err := insts.Encode(insts.TagFADDS, &insts.Instruction{Rd: 0, Rn: 1, Rm: 2})
			Expect(err).NotTo(HaveOccurred())
			dWord, err := insts.Encode(insts.TagFADDD, &insts.Instruction{Rd: 0, Rn: 1, Rm: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(insts.Prefix(sWord)).To(Equal(insts.Prefix(dWord)), "FADDS/FADDD must share an opcode prefix")

			sInst, err := decoder.Decode(sWord)
			Expect(err).NotTo(HaveOccurred())
			Expect(sInst.Tag).To(Equal(insts.TagFADDS))

			dInst, err := decoder.Decode(dWord)
			Expect(err).NotTo(HaveOccurred())
			Expect(dInst.Tag).To(Equal(insts.TagFADDD))
		})
	})

	Describe("conditional branch family sharing an opcode range", func() {
		It("tells every condition apart by the packed condition nibble", func() {
			for _, mnemonic := range []string{"B.EQ", "B.NE", "B.LT", "B.GE", "B.HI", "B.LO"} {
				codec, ok := insts.Lookup(mnemonic)
				Expect(ok).To(BeTrue(), mnemonic)

				word, err := insts.Encode(insts.TagBCond, &insts.Instruction{Cond: insts.Cond(codec.Discriminator()), Imm: 3})
				Expect(err).NotTo(HaveOccurred())

				inst, err := decoder.Decode(word)
				Expect(err).NotTo(HaveOccurred())
				Expect(inst.Tag).To(Equal(insts.TagBCond))
				Expect(inst.Cond).To(Equal(insts.Cond(codec.Discriminator())), mnemonic)
			}
		})
	})

	Describe("B-format branch offsets", func() {
		It("round-trips the widest positive and negative word offsets", func() {
			const maxOffset = 1<<25 - 1
			const minOffset = -(1 << 25)
			for _, off := range []int64{maxOffset, minOffset} {
				word, err := insts.Encode(insts.TagB, &insts.Instruction{Imm: off})
				Expect(err).NotTo(HaveOccurred())

				inst, err := decoder.Decode(word)
				Expect(err).NotTo(HaveOccurred())
				Expect(inst.Imm).To(Equal(off))
			}
		})
	})

	Describe("unrecognized opcode prefixes", func() {
		It("returns an error instead of a zero-value instruction", func() {
			_, err := decoder.Decode(0xFFFFFFFF)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Disassemble", func() {
		It("renders a decoded ADD back into text", func() {
			word, err := insts.Encode(insts.TagADD, &insts.Instruction{Rd: 1, Rn: 2, Rm: 3})
			Expect(err).NotTo(HaveOccurred())
			inst, err := decoder.Decode(word)
			Expect(err).NotTo(HaveOccurred())
			Expect(insts.Disassemble(inst)).To(Equal("ADD X1, X2, X3"))
		})
	})
})
