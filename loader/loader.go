// Package loader turns an assembled or externally built object into the
// byte slice emu.NewEmulator wants for its text segment: LoadObject reads
// the native big-endian packed-word stream spec.md §6 defines, LoadELF
// reads a .text-only ELF64 object as a secondary entry point for objects
// built by an external cross-assembler.
package loader

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"sort"
)

// LoadObject reads a native LEGv8 object: a flat stream of 32-bit
// big-endian instruction words in program order, exactly what
// assembler.Program.Bytes returns. It returns the bytes unchanged after
// validating the length is a multiple of 4, ready to hand to
// emu.NewEmulator.
func LoadObject(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: reading object: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("loader: object length %d is not a multiple of 4", len(data))
	}
	return data, nil
}

// Save writes text (a big-endian packed-word instruction stream, such as
// assembler.Program.Bytes()) to w in the native object format.
func Save(w io.Writer, text []byte) error {
	if len(text)%4 != 0 {
		return fmt.Errorf("loader: text length %d is not a multiple of 4", len(text))
	}
	_, err := w.Write(text)
	return err
}

// LoadELF reads a .text-only ELF64 object, such as one produced by an
// external cross-assembler targeting this ISA's opcode encoding, and
// returns the concatenated bytes of its executable PT_LOAD segments' file
// contents in address order, with any gap between them zero-filled, ready to hand to emu.NewEmulator. Unlike LoadObject
// this does not assume the reader already contains a bare instruction
// stream: it walks program headers the way an ELF loader must.
func LoadELF(r io.ReaderAt) ([]byte, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("loader: opening ELF object: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("loader: not a 64-bit ELF object")
	}

	type seg struct {
		addr uint64
		data []byte
	}
	var segs []seg
	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD || phdr.Flags&elf.PF_X == 0 {
			continue
		}
		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("loader: reading segment at %#x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("loader: short read for segment at %#x: got %d, want %d", phdr.Vaddr, n, phdr.Filesz)
			}
		}
		segs = append(segs, seg{addr: phdr.Vaddr, data: data})
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("loader: no executable PT_LOAD segment found")
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].addr < segs[j].addr })
	var buf bytes.Buffer
	base := segs[0].addr
	for _, s := range segs {
		if s.addr-base < uint64(buf.Len()) {
			return nil, fmt.Errorf("loader: overlapping executable segments in ELF object")
		}
		if gap := s.addr - base - uint64(buf.Len()); gap > 0 {
			buf.Write(make([]byte, gap))
		}
		buf.Write(s.data)
	}
	if buf.Len()%4 != 0 {
		return nil, fmt.Errorf("loader: ELF executable content length %d is not a multiple of 4", buf.Len())
	}
	return buf.Bytes(), nil
}
