package ape

import "fmt"

// SourcePosition identifies one point in one source file. It is attached
// to every AST node, every emitted bytecode offset, and every error so
// that a runtime failure can always be mapped back to source text.
type SourcePosition struct {
	File   string
	Line   int
	Column int
}

func (p SourcePosition) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

func (p SourcePosition) IsZero() bool {
	return p.File == "" && p.Line == 0 && p.Column == 0
}

var noPosition = SourcePosition{}
