package expr

import "strings"

// String renders the tree in infix notation. Synthesized individuals have no
// tree and render as a placeholder.
func (ind *Individual) String() string {
	if len(ind.core) == 0 {
		return "<semantic>"
	}
	var b strings.Builder
	cursor := 0
	ind.writeInfix(&b, &cursor)
	return b.String()
}

func (ind *Individual) writeInfix(b *strings.Builder, cursor *int) {
	if *cursor >= len(ind.core) {
		b.WriteString("?")
		return
	}
	node := ind.core[*cursor]
	*cursor++

	switch node.Arity() {
	case 0:
		b.WriteString(node.String())
	case 1:
		b.WriteString(node.String())
		b.WriteByte('(')
		ind.writeInfix(b, cursor)
		b.WriteByte(')')
	default:
		b.WriteByte('(')
		ind.writeInfix(b, cursor)
		b.WriteByte(' ')
		b.WriteString(infixSymbol(node.Kind))
		b.WriteByte(' ')
		ind.writeInfix(b, cursor)
		b.WriteByte(')')
	}
}

func infixSymbol(k Kind) string {
	switch k {
	case Addition:
		return "+"
	case Subtraction:
		return "-"
	case Multiplication:
		return "*"
	case Division:
		return "/"
	default:
		return k.String()
	}
}
