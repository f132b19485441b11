package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/legv8/emu"
)

func text(words ...uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4] = byte(w >> 24)
		buf[i*4+1] = byte(w >> 16)
		buf[i*4+2] = byte(w >> 8)
		buf[i*4+3] = byte(w)
	}
	return buf
}

var _ = Describe("Memory", func() {
	Describe("FetchInstruction", func() {
		It("round-trips a word and faults past the end or before the start", func() {
			m := emu.NewMemory(text(0xDEADBEEF, 0x00000001), false)

			w, exc := m.FetchInstruction(0)
			Expect(exc).To(BeNil())
			Expect(w).To(Equal(uint32(0xDEADBEEF)))

			_, exc = m.FetchInstruction(2)
			Expect(exc).NotTo(BeNil())
			Expect(exc.Kind).To(Equal(emu.ExcPC))

			_, exc = m.FetchInstruction(-1)
			Expect(exc).NotTo(BeNil())
			Expect(exc.Kind).To(Equal(emu.ExcPC))
		})
	})

	Describe("zero page", func() {
		It("faults on address 0 when disabled", func() {
			m := emu.NewMemory(text(0), false)
			_, exc := m.Read8(0, 0)
			Expect(exc).NotTo(BeNil())
			Expect(exc.Kind).To(Equal(emu.ExcData))
		})

		It("is read-write when enabled", func() {
			m := emu.NewMemory(text(0), true)
			Expect(m.Write64(0, 8, 0x1122334455667788)).To(BeNil())
			v, exc := m.Read64(0, 8)
			Expect(exc).To(BeNil())
			Expect(v).To(Equal(uint64(0x1122334455667788)))
		})
	})

	Describe("data faults", func() {
		It("rejects a write into text as a store fault", func() {
			m := emu.NewMemory(text(0xAAAAAAAA), false)
			exc := m.Write8(0, emu.TextStart, 0)
			Expect(exc).NotTo(BeNil())
			Expect(exc.Kind).To(Equal(emu.ExcData))
			Expect(exc.DataKind).To(Equal(emu.DataFaultWriteToText))
			Expect(exc.Access).To(Equal(emu.AccessStore))
		})

		It("reports a load out of range as a load fault", func() {
			m := emu.NewMemory(text(0), false)
			_, exc := m.Read8(0, emu.DynamicEnd+100)
			Expect(exc).NotTo(BeNil())
			Expect(exc.Kind).To(Equal(emu.ExcData))
			Expect(exc.DataKind).To(Equal(emu.DataFaultOutOfRange))
			Expect(exc.Access).To(Equal(emu.AccessLoad))
			Expect(exc.Message()).To(ContainSubstring("data.load"))
		})

		It("reports a store out of range as a store fault", func() {
			m := emu.NewMemory(text(0), false)
			exc := m.Write8(0, emu.DynamicEnd+100, 1)
			Expect(exc).NotTo(BeNil())
			Expect(exc.Kind).To(Equal(emu.ExcData))
			Expect(exc.DataKind).To(Equal(emu.DataFaultOutOfRange))
			Expect(exc.Access).To(Equal(emu.AccessStore))
			Expect(exc.Message()).To(ContainSubstring("data.store"))
		})
	})

	Describe("dynamic region", func() {
		It("is lazily paged and round-trips a write", func() {
			m := emu.NewMemory(text(0), false)
			Expect(m.Write64(0, emu.TextEnd+4096, 42)).To(BeNil())
			v, exc := m.Read64(0, emu.TextEnd+4096)
			Expect(exc).To(BeNil())
			Expect(v).To(BeNumerically("==", 42))
		})
	})

	Describe("watchpoints", func() {
		It("fires on a watched write and clears", func() {
			m := emu.NewMemory(text(0), false)
			m.SetWatchpoint(emu.TextEnd)

			exc := m.Write8(0, emu.TextEnd, 1)
			Expect(exc).NotTo(BeNil())
			Expect(exc.Kind).To(Equal(emu.ExcWatchpoint))

			m.ClearWatchpoint(emu.TextEnd)
			Expect(m.Write8(0, emu.TextEnd, 1)).To(BeNil())
		})
	})

	Describe("multi-byte encoding", func() {
		It("stores big-endian", func() {
			m := emu.NewMemory(text(0), true)
			Expect(m.Write32(0, 0, 0x01020304)).To(BeNil())
			b0, _ := m.Read8(0, 0)
			b3, _ := m.Read8(0, 3)
			Expect(b0).To(Equal(uint8(0x01)))
			Expect(b3).To(Equal(uint8(0x04)))
		})
	})
})
