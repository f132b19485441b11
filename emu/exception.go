package emu

import "fmt"

// ExceptionKind classifies why the VM stopped running normally.
type ExceptionKind uint8

const (
	ExcUnknown ExceptionKind = iota
	ExcSIMD                  // malformed FP operand encoding
	ExcIllegalEncoding       // illegal execution state; no Step path raises it
	ExcSyscall               // reserved for a future syscall ABI; unused today
	ExcInstr                 // undecodable word, unhandled tag, bad STXR status register, instruction limit, or Step after halt/fault
	ExcPC                    // PC left the text segment
	ExcData                  // memory access outside any mapped region
	ExcFPDivByZero           // floating-point division by zero
	ExcDivByZero             // integer division by zero
	ExcWatchpoint            // a watched address was written
	ExcBreakpointHalt        // HALT executed
	ExcBreakpointDump        // bkpt.dump; DUMP itself only logs a marker and does not raise it
	ExcBreakpointDebugger    // a debugger-set breakpoint PC was reached
)

func (k ExceptionKind) String() string {
	switch k {
	case ExcSIMD:
		return "simd"
	case ExcIllegalEncoding:
		return "ies"
	case ExcSyscall:
		return "sys"
	case ExcInstr:
		return "instr"
	case ExcPC:
		return "pc"
	case ExcData:
		return "data"
	case ExcFPDivByZero:
		return "fpe.division_by_zero"
	case ExcDivByZero:
		return "fpe.division_by_zero" // integer division-by-zero shares the fpe taxonomy per spec.md's exception table
	case ExcWatchpoint:
		return "wpt"
	case ExcBreakpointHalt:
		return "bkpt.halt"
	case ExcBreakpointDump:
		return "bkpt.dump"
	case ExcBreakpointDebugger:
		return "bkpt.debugger"
	default:
		return "unknown"
	}
}

// DataFaultKind narrows an ExcData exception to what specifically went
// wrong with the address.
type DataFaultKind uint8

const (
	DataFaultOutOfRange DataFaultKind = iota
	DataFaultWriteToText
	DataFaultMisaligned
)

func (k DataFaultKind) String() string {
	switch k {
	case DataFaultWriteToText:
		return "write_to_text"
	case DataFaultMisaligned:
		return "misaligned"
	default:
		return "out_of_range"
	}
}

// AccessKind records whether a faulting memory access was a load or a
// store, matching the exception table's `data | {kind: load|store, addr}`
// payload.
type AccessKind uint8

const (
	AccessLoad AccessKind = iota
	AccessStore
)

func (a AccessKind) String() string {
	if a == AccessStore {
		return "store"
	}
	return "load"
}

// Exception is the error a Step returns when the VM leaves the running
// state. It implements error so callers can use errors.As.
type Exception struct {
	Kind      ExceptionKind
	FaultPC   int64
	DataKind  DataFaultKind // meaningful only when Kind == ExcData
	Access    AccessKind    // meaningful only when Kind == ExcData
	Addr      uint64        // meaningful only when Kind == ExcData or ExcWatchpoint
	Detail    string
}

// Message renders the human-readable phrase surfaced to end users (the
// CLI and diag package), independent of Kind's short taxonomy string
// used for machine-readable exception records.
func (e *Exception) Message() string {
	switch e.Kind {
	case ExcFPDivByZero, ExcDivByZero:
		return "floating-point exception: division by zero"
	case ExcBreakpointHalt:
		return "breakpoint exception: reached halt"
	case ExcBreakpointDump:
		return "breakpoint exception: dump"
	case ExcBreakpointDebugger:
		return "breakpoint exception: debugger breakpoint"
	case ExcData:
		return fmt.Sprintf("data.%s exception: %s at %#x", e.Access, e.DataKind, e.Addr)
	case ExcWatchpoint:
		return fmt.Sprintf("watchpoint exception: write to %#x", e.Addr)
	case ExcPC:
		return "pc exception: program counter out of range"
	case ExcIllegalEncoding:
		return "illegal execution state"
	default:
		if e.Detail != "" {
			return fmt.Sprintf("%s exception: %s", e.Kind, e.Detail)
		}
		return fmt.Sprintf("%s exception", e.Kind)
	}
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s (pc=%d)", e.Message(), e.FaultPC)
}
