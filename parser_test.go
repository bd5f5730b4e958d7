package ape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, source string) *Program {
	t.Helper()
	errs := newErrorList()
	p := NewParser("<test>", source, errs, false)
	prog := p.ParseProgram()
	require.False(t, errs.HasErrors(), "unexpected parse errors: %v", errs.items)
	return prog
}

func TestParser_VarDefine(t *testing.T) {
	prog := parseProgram(t, "var x = 1 + 2")
	require.Len(t, prog.Statements, 1)
	def, ok := prog.Statements[0].(*DefineStmt)
	require.True(t, ok)
	assert.Equal(t, "x", def.Name.Name)
	assert.True(t, def.Assignable)
	infix, ok := def.Value.(*InfixExpr)
	require.True(t, ok)
	assert.Equal(t, TokenPlus, infix.Operator)
}

func TestParser_ConstIsNotAssignable(t *testing.T) {
	prog := parseProgram(t, "const x = 1")
	def := prog.Statements[0].(*DefineStmt)
	assert.False(t, def.Assignable)
}

func TestParser_IfElse(t *testing.T) {
	prog := parseProgram(t, "if (x) { 1 } else { 2 }")
	stmt, ok := prog.Statements[0].(*IfStmt)
	require.True(t, ok)
	require.Len(t, stmt.Cases, 1)
	require.NotNil(t, stmt.Alternative)
}

func TestParser_FunctionLiteralAndCall(t *testing.T) {
	prog := parseProgram(t, "var f = function(a, b) { return a + b }; f(1, 2)")
	require.Len(t, prog.Statements, 2)
	def := prog.Statements[0].(*DefineStmt)
	fn, ok := def.Value.(*FunctionLiteral)
	require.True(t, ok)
	assert.Len(t, fn.Params, 2)

	exprStmt := prog.Statements[1].(*ExpressionStmt)
	call, ok := exprStmt.Expression.(*CallExpr)
	require.True(t, ok)
	assert.Len(t, call.Args, 2)
}

func TestParser_CompoundAssignDesugarsWithCopiedDestination(t *testing.T) {
	prog := parseProgram(t, "x += 1")
	exprStmt := prog.Statements[0].(*ExpressionStmt)
	assign, ok := exprStmt.Expression.(*AssignExpr)
	require.True(t, ok)
	assert.False(t, assign.Postfix)

	infix, ok := assign.Value.(*InfixExpr)
	require.True(t, ok)
	assert.Equal(t, TokenPlus, infix.Operator)

	// Dest and the infix's Left both name x, but must be distinct nodes
	// so later passes never mutate one occurrence through the other.
	leftIdent, ok := infix.Left.(*Identifier)
	require.True(t, ok)
	destIdent, ok := assign.Dest.(*Identifier)
	require.True(t, ok)
	assert.Equal(t, destIdent.Name, leftIdent.Name)
	assert.NotSame(t, destIdent, leftIdent)
}

func TestParser_PostfixIncrement(t *testing.T) {
	prog := parseProgram(t, "x++")
	exprStmt := prog.Statements[0].(*ExpressionStmt)
	assign, ok := exprStmt.Expression.(*AssignExpr)
	require.True(t, ok)
	assert.True(t, assign.Postfix)
}

func TestParser_TemplateStringDesugarsToConcatenation(t *testing.T) {
	prog := parseProgram(t, `var s = "a{b}c"`)
	def := prog.Statements[0].(*DefineStmt)
	// Desugars to ("a" + to_str(b)) + "c", an InfixExpr tree.
	_, ok := def.Value.(*InfixExpr)
	require.True(t, ok)
}

func TestParser_ImportPath(t *testing.T) {
	prog := parseProgram(t, `import "util.ape"`)
	imp, ok := prog.Statements[0].(*ImportStmt)
	require.True(t, ok)
	assert.Equal(t, "util.ape", imp.Path)
}

func TestParser_ForEach(t *testing.T) {
	prog := parseProgram(t, "for (x in items) { x }")
	stmt, ok := prog.Statements[0].(*ForEachStmt)
	require.True(t, ok)
	assert.Equal(t, "x", stmt.Iterator.Name)
}
