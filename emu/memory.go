package emu

// pageSize is the granularity at which the dynamic region is lazily
// backed by host memory, matching the "host-page-allocated" wording in
// the memory model: nothing beyond text is touched until first access.
const pageSize = 4096

// Memory is the three-region LEGv8 address space: an optional zero_page,
// a read-only text region holding the assembled instruction stream, and a
// dynamic region allocated one page at a time on first touch. All
// multi-byte accesses are big-endian.
type Memory struct {
	zeroPage    []byte // nil unless enabled
	text        []byte
	dynamic     map[uint64][]byte
	watchpoints map[uint64]bool
}

// NewMemory returns a Memory with the given assembled instruction stream
// loaded into text. withZeroPage controls whether address 0 through 4095
// is a writable scratch region or an immediate fault.
func NewMemory(text []byte, withZeroPage bool) *Memory {
	m := &Memory{
		text:        text,
		dynamic:     make(map[uint64][]byte),
		watchpoints: make(map[uint64]bool),
	}
	if withZeroPage {
		m.zeroPage = make([]byte, ZeroPageEnd)
	}
	return m
}

// SetWatchpoint arms a watchpoint at addr: the next write covering that
// byte returns an ExcWatchpoint exception instead of completing silently.
func (m *Memory) SetWatchpoint(addr uint64) { m.watchpoints[addr] = true }

// ClearWatchpoint disarms a previously armed watchpoint.
func (m *Memory) ClearWatchpoint(addr uint64) { delete(m.watchpoints, addr) }

func (m *Memory) regionFor(addr uint64) (data []byte, base uint64, writable bool, ok bool) {
	switch {
	case m.zeroPage != nil && addr < ZeroPageEnd:
		return m.zeroPage, 0, true, true
	case addr >= TextStart && addr < uint64(TextStart+len(m.text)):
		return m.text, TextStart, false, true
	case addr >= TextEnd && addr <= DynamicEnd:
		page := (addr - TextEnd) / pageSize * pageSize
		buf, exists := m.dynamic[page]
		if !exists {
			buf = make([]byte, pageSize)
			m.dynamic[page] = buf
		}
		return buf, TextEnd + page, true, true
	default:
		return nil, 0, false, false
	}
}

func (m *Memory) readByte(pc int64, addr uint64) (byte, *Exception) {
	data, base, _, ok := m.regionFor(addr)
	if !ok {
		return 0, &Exception{Kind: ExcData, FaultPC: pc, DataKind: DataFaultOutOfRange, Access: AccessLoad, Addr: addr}
	}
	return data[addr-base], nil
}

func (m *Memory) writeByte(pc int64, addr uint64, v byte) *Exception {
	if m.watchpoints[addr] {
		return &Exception{Kind: ExcWatchpoint, FaultPC: pc, Access: AccessStore, Addr: addr}
	}
	data, base, writable, ok := m.regionFor(addr)
	if !ok {
		return &Exception{Kind: ExcData, FaultPC: pc, DataKind: DataFaultOutOfRange, Access: AccessStore, Addr: addr}
	}
	if !writable {
		return &Exception{Kind: ExcData, FaultPC: pc, DataKind: DataFaultWriteToText, Access: AccessStore, Addr: addr}
	}
	data[addr-base] = v
	return nil
}

// Read reads n big-endian bytes starting at addr, transparently spanning
// region and page boundaries.
func (m *Memory) Read(pc int64, addr uint64, n int) (uint64, *Exception) {
	var v uint64
	for i := 0; i < n; i++ {
		b, err := m.readByte(pc, addr+uint64(i))
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// Write writes the low n bytes of v as big-endian bytes starting at addr.
func (m *Memory) Write(pc int64, addr uint64, v uint64, n int) *Exception {
	for i := 0; i < n; i++ {
		shift := 8 * (n - 1 - i)
		if err := m.writeByte(pc, addr+uint64(i), byte(v>>shift)); err != nil {
			return err
		}
	}
	return nil
}

// Read8/16/32/64 and Write8/16/32/64 are typed conveniences over Read/Write
// for the load/store execution units.
func (m *Memory) Read8(pc int64, addr uint64) (uint8, *Exception) {
	v, err := m.Read(pc, addr, 1)
	return uint8(v), err
}

func (m *Memory) Read16(pc int64, addr uint64) (uint16, *Exception) {
	v, err := m.Read(pc, addr, 2)
	return uint16(v), err
}

func (m *Memory) Read32(pc int64, addr uint64) (uint32, *Exception) {
	v, err := m.Read(pc, addr, 4)
	return uint32(v), err
}

func (m *Memory) Read64(pc int64, addr uint64) (uint64, *Exception) {
	return m.Read(pc, addr, 8)
}

func (m *Memory) Write8(pc int64, addr uint64, v uint8) *Exception {
	return m.Write(pc, addr, uint64(v), 1)
}

func (m *Memory) Write16(pc int64, addr uint64, v uint16) *Exception {
	return m.Write(pc, addr, uint64(v), 2)
}

func (m *Memory) Write32(pc int64, addr uint64, v uint32) *Exception {
	return m.Write(pc, addr, uint64(v), 4)
}

func (m *Memory) Write64(pc int64, addr uint64, v uint64) *Exception {
	return m.Write(pc, addr, v, 8)
}

// FetchInstruction reads the 32-bit big-endian word at the given
// instruction index (PC counts instructions, not bytes) directly out of
// text, bypassing the general Read path since fetch can never touch the
// dynamic or zero_page regions.
func (m *Memory) FetchInstruction(pc int64) (uint32, *Exception) {
	addr := uint64(pc) * 4
	if pc < 0 || addr+4 > uint64(len(m.text)) {
		return 0, &Exception{Kind: ExcPC, FaultPC: pc}
	}
	return uint32(m.text[addr])<<24 | uint32(m.text[addr+1])<<16 | uint32(m.text[addr+2])<<8 | uint32(m.text[addr+3]), nil
}

// TextLen reports the number of instructions loaded into text.
func (m *Memory) TextLen() int64 { return int64(len(m.text) / 4) }
