// Package main provides legv8check, a CLI that loads the instruction
// codec table and reports whether its startup invariant check passed.
// insts.verify runs unconditionally at package init, so reaching main
// here already proves the table is internally consistent; this tool
// exists to make that check an explicit, scriptable CI step rather than
// an implicit side effect of importing the package, and to report the
// table's shape.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/archsim/legv8/insts"
)

func main() {
	mnemonics := insts.Mnemonics()
	sort.Strings(mnemonics)

	fmt.Printf("codec table OK: %d codec rows, %d mnemonics\n", insts.CodecCount(), len(mnemonics))

	for _, m := range mnemonics {
		codec, ok := insts.Lookup(m)
		if !ok {
			fmt.Fprintf(os.Stderr, "legv8check: %q reported by Mnemonics but not found by Lookup\n", m)
			os.Exit(1)
		}
		fmt.Printf("  %-8s %-4s %-12s opcode [%#03x,%#03x]  %s\n",
			m, codec.Format, codec.Style.String(), codec.OpcodeStart, codec.OpcodeEnd, codec.Description)
	}
}
