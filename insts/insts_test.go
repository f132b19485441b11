package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/legv8/insts"
)

var _ = Describe("Insts Package", func() {
	It("should have an Instruction type", func() {
		var i insts.Instruction
		Expect(i).To(BeZero())
	})

	It("should have a Decoder type", func() {
		decoder := insts.NewDecoder()
		Expect(decoder).ToNot(BeNil())
	})

	It("registers every codec's mnemonics for lookup", func() {
		for _, tag := range []insts.Tag{insts.TagADD, insts.TagHALT, insts.TagMOVZ} {
			codecs := insts.ByTag(tag)
			Expect(codecs).NotTo(BeEmpty())
			for _, c := range codecs {
				for _, m := range c.Mnemonics {
					_, ok := insts.Lookup(m)
					Expect(ok).To(BeTrue(), m)
				}
			}
		}
	})
})
