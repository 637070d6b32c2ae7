package ast

import (
	"fmt"
	"io"
	"strings"
)

// Namer resolves symbol slots to names.
type Namer interface {
	Name(slot int) string
}

// Dump writes an indented rendering of the tree rooted at n.
func Dump(w io.Writer, n *Node, names Namer) {
	dump(w, n, names, 0)
}

func dump(w io.Writer, n *Node, names Namer, level int) {
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", level)
	// glue nodes only sequence their children
	if n.Op == GLUE && n.IntValue == 0 {
		dump(w, n.Left, names, level)
		dump(w, n.Right, names, level)
		return
	}
	fmt.Fprintf(w, "%s%s", indent, n.Op)
	switch n.Op {
	case INTLIT:
		fmt.Fprintf(w, " %d", n.IntValue)
	case STRLIT:
		fmt.Fprintf(w, " L%d", n.ID)
	case SCALE:
		fmt.Fprintf(w, " %d", n.IntValue)
	case GLUE:
		fmt.Fprintf(w, " arg%d", n.IntValue)
	case IDENT, ADDR, FUNCCALL, FUNCTION:
		fmt.Fprintf(w, " %s", names.Name(n.ID))
	}
	fmt.Fprintf(w, " <%s>", n.Type)
	if n.RValue {
		fmt.Fprint(w, " rval")
	}
	fmt.Fprintln(w)
	dump(w, n.Left, names, level+1)
	dump(w, n.Mid, names, level+1)
	dump(w, n.Right, names, level+1)
}
