package ape

import (
	"path/filepath"
)

// compilationScope is one function's in-progress bytecode: the
// CompiledFunction being built, the last two opcodes emitted (so the
// compiler can check "does this body already end in a return"), and the
// break/continue jump targets of whatever loops are currently open in
// this function.
type compilationScope struct {
	fn *CompiledFunction

	emitted    bool
	lastOp     Opcode
	prevOp     Opcode
	lastOpPos  int

	breakIPs    []int
	continueIPs []int
}

func (s *compilationScope) pushBreak(ip int)    { s.breakIPs = append(s.breakIPs, ip) }
func (s *compilationScope) popBreak()           { s.breakIPs = s.breakIPs[:len(s.breakIPs)-1] }
func (s *compilationScope) topBreak() int {
	if len(s.breakIPs) == 0 {
		return -1
	}
	return s.breakIPs[len(s.breakIPs)-1]
}

func (s *compilationScope) pushContinue(ip int) { s.continueIPs = append(s.continueIPs, ip) }
func (s *compilationScope) popContinue()        { s.continueIPs = s.continueIPs[:len(s.continueIPs)-1] }
func (s *compilationScope) topContinue() int {
	if len(s.continueIPs) == 0 {
		return -1
	}
	return s.continueIPs[len(s.continueIPs)-1]
}

// importedModule is a compiled import, cached so importing the same
// file twice from different places doesn't recompile it.
type importedModule struct {
	name    string
	globals map[string]*Symbol // name -> symbol (ScopeModuleGlobal, with its slot index)
}

// Compiler turns a parsed Program into a CompiledFunction, following
// spec.md §4.3's single-pass compiler: no separate IR, expressions and
// statements are walked once and opcodes emitted directly, with forward
// jumps backpatched once their target address is known.
type Compiler struct {
	heap      *heap
	apeGlobal *globalStore
	errs      *ErrorList

	constants []Value

	scopes     []*compilationScope
	symTables  []*SymbolTable
	fileStack  []string // canonical paths of files currently being compiled, for cycle detection
	modules    map[string]*importedModule
	replMode   bool
}

// NewCompiler creates a compiler that shares constants/symbols/modules
// across every Compile call — the usual way to compile a REPL line at a
// time against accumulated state.
func NewCompiler(h *heap, globals *globalStore, errs *ErrorList, replMode bool) *Compiler {
	c := &Compiler{heap: h, apeGlobal: globals, errs: errs, modules: make(map[string]*importedModule), replMode: replMode}
	c.symTables = []*SymbolTable{NewSymbolTable(globals)}
	c.pushCompilationScope()
	return c
}

// Constants returns the constant pool built up so far; the VM indexes
// into a copy of this with OpConstant.
func (c *Compiler) Constants() []Value { return append([]Value(nil), c.constants...) }

// ModuleGlobalCount reports how many module-global slots have been
// allocated so far, for sizing the VM's module-global array.
func (c *Compiler) ModuleGlobalCount() int {
	top := c.symTables[0]
	return top.MaxNumDefinitions
}

func (c *Compiler) currentScope() *compilationScope { return c.scopes[len(c.scopes)-1] }
func (c *Compiler) symbols() *SymbolTable            { return c.symTables[len(c.symTables)-1] }

func (c *Compiler) pushCompilationScope() {
	c.scopes = append(c.scopes, &compilationScope{fn: &CompiledFunction{}})
}

// popCompilationScope removes and returns the finished function body.
func (c *Compiler) popCompilationScope() *CompiledFunction {
	top := c.currentScope()
	c.scopes = c.scopes[:len(c.scopes)-1]
	return top.fn
}

func (c *Compiler) pushSymbolTable(t *SymbolTable) { c.symTables = append(c.symTables, t) }
func (c *Compiler) popSymbolTable()                { c.symTables = c.symTables[:len(c.symTables)-1] }

func (c *Compiler) ip() int { return len(c.currentScope().fn.Code) }

func (c *Compiler) emit(pos SourcePosition, op Opcode, operands ...int) int {
	scope := c.currentScope()
	position := len(scope.fn.Code)
	scope.fn.append(Make(op, operands...), pos)
	scope.prevOp = scope.lastOp
	scope.lastOp = op
	scope.emitted = true
	scope.lastOpPos = position
	return position
}

func (c *Compiler) lastOpcodeIs(op Opcode) bool {
	scope := c.currentScope()
	return scope.emitted && scope.lastOp == op
}

// changeOperand overwrites the operand bytes of the instruction at ip
// (not the opcode byte itself), used to backpatch a forward jump once
// its target address is known.
func (c *Compiler) changeOperand(ip int, operand int) {
	scope := c.currentScope()
	op := Opcode(scope.fn.Code[ip])
	newInstr := Make(op, operand)
	copy(scope.fn.Code[ip:ip+len(newInstr)], newInstr)
}

func (c *Compiler) errorf(pos SourcePosition, format string, args ...any) {
	c.errs.add(newError(ErrorCompilation, pos, format, args...))
}

func (c *Compiler) addConstant(v Value) int {
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// Compile parses and compiles one source file, appending to whatever
// constants/globals/bytecode this Compiler already holds — the shape a
// REPL or a top-level program compile both want. filename is used for
// source positions and, for file-backed sources, as the base for
// resolving relative imports.
func (c *Compiler) Compile(filename, source string) (*CompiledFunction, error) {
	parser := NewParser(filename, source, c.errs, c.replMode)
	prog := parser.ParseProgram()
	if c.errs.HasErrors() {
		return nil, c.errs.Last()
	}
	foldProgram(prog)
	c.fileStack = []string{canonicalPath(filename)}
	for _, stmt := range prog.Statements {
		c.compileStmt(stmt)
		if c.errs.HasErrors() {
			return nil, c.errs.Last()
		}
	}
	return c.currentScope().fn, nil
}

func canonicalPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return filepath.Clean(abs)
}

// ---- statements ----

func (c *Compiler) compileStmt(s Stmt) {
	switch n := s.(type) {
	case *ExpressionStmt:
		c.compileExpr(n.Expression)
		c.emit(n.pos, OpPop)

	case *DefineStmt:
		c.compileExpr(n.Value)
		sym, ok := c.symbols().Define(n.Name.Name, n.Assignable)
		if !ok {
			c.errorf(n.pos, "symbol %q already defined in this scope", n.Name.Name)
			return
		}
		c.writeSymbol(n.pos, sym, true)

	case *IfStmt:
		c.compileIfStmt(n)

	case *WhileStmt:
		c.compileWhileStmt(n)

	case *ForStmt:
		c.compileForStmt(n)

	case *ForEachStmt:
		c.compileForEachStmt(n)

	case *BlockStmt:
		c.symbols().EnterBlock()
		for _, stmt := range n.Statements {
			c.compileStmt(stmt)
		}
		c.symbols().LeaveBlock()

	case *ReturnStmt:
		if n.Value != nil {
			c.compileExpr(n.Value)
			c.emit(n.pos, OpReturnValue)
		} else {
			c.emit(n.pos, OpReturn)
		}

	case *BreakStmt:
		target := c.currentScope().topBreak()
		if target < 0 {
			c.errorf(n.pos, "nothing to break from")
			return
		}
		c.emit(n.pos, OpJump, target)

	case *ContinueStmt:
		target := c.currentScope().topContinue()
		if target < 0 {
			c.errorf(n.pos, "nothing to continue from")
			return
		}
		c.emit(n.pos, OpJump, target)

	case *ImportStmt:
		c.compileImport(n)

	case *RecoverStmt:
		c.compileRecoverStmt(n)
	}
}

func (c *Compiler) compileIfStmt(n *IfStmt) {
	var jumpsToEnd []int
	for _, ifCase := range n.Cases {
		c.compileExpr(ifCase.Condition)
		jumpToNext := c.emit(n.pos, OpJumpIfFalse, 0xbeef)
		c.compileStmt(ifCase.Consequence)
		jumpsToEnd = append(jumpsToEnd, c.emit(n.pos, OpJump, 0xbeef))
		c.changeOperand(jumpToNext, c.ip())
	}
	if n.Alternative != nil {
		c.compileStmt(n.Alternative)
	}
	end := c.ip()
	for _, ip := range jumpsToEnd {
		c.changeOperand(ip, end)
	}
}

func (c *Compiler) compileWhileStmt(n *WhileStmt) {
	beforeTest := c.ip()
	c.compileExpr(n.Condition)
	// JUMP_IF_TRUE skips the "exit" jump, so execution only reaches it
	// (and thus leaves the loop) when the test is false.
	afterTest := c.ip()
	c.emit(n.pos, OpJumpIfTrue, afterTest+6)
	jumpToAfterBody := c.emit(n.pos, OpJump, 0xdead)

	scope := c.currentScope()
	scope.pushContinue(beforeTest)
	scope.pushBreak(jumpToAfterBody)

	c.compileStmt(n.Body)

	scope.popBreak()
	scope.popContinue()

	c.emit(n.pos, OpJump, beforeTest)
	c.changeOperand(jumpToAfterBody, c.ip())
}

func (c *Compiler) compileForStmt(n *ForStmt) {
	c.symbols().EnterBlock()
	defer c.symbols().LeaveBlock()

	jumpToAfterUpdate := -1
	if n.Init != nil {
		c.compileStmt(n.Init)
		jumpToAfterUpdate = c.emit(n.pos, OpJump, 0xbeef)
	}

	updateIP := c.ip()
	if n.Update != nil {
		c.compileStmt(n.Update)
	}
	if n.Init != nil {
		c.changeOperand(jumpToAfterUpdate, c.ip())
	}

	if n.Test != nil {
		c.compileExpr(n.Test)
	} else {
		c.emit(n.pos, OpTrue)
	}
	afterTest := c.ip()
	c.emit(n.pos, OpJumpIfTrue, afterTest+6)
	jumpToAfterBody := c.emit(n.pos, OpJump, 0xdead)

	scope := c.currentScope()
	scope.pushContinue(updateIP)
	scope.pushBreak(jumpToAfterBody)

	c.compileStmt(n.Body)

	scope.popBreak()
	scope.popContinue()

	c.emit(n.pos, OpJump, updateIP)
	c.changeOperand(jumpToAfterBody, c.ip())
}

// compileForStmt's Update statement (when present) is an ExpressionStmt
// so it already ends in OpPop from the normal compileStmt path — mirrors
// the original's "compile expression then POP" for the update clause.
// compileForEachStmt implements `for (x in src) { ... }` entirely with
// hidden locals (`@i`, `@source`), matching original_source/compiler.c's
// STATEMENT_FOREACH lowering: no separate iterator protocol, just index
// plus LEN plus GET_VALUE_AT.
func (c *Compiler) compileForEachStmt(n *ForEachStmt) {
	c.symbols().EnterBlock()
	defer c.symbols().LeaveBlock()

	indexSym, ok := c.symbols().Define("@i", true)
	if !ok {
		c.errorf(n.pos, "could not define internal foreach index")
		return
	}
	c.emit(n.pos, OpConstant, c.addConstant(NumberValue(0)))
	c.writeSymbol(n.pos, indexSym, true)

	var sourceSym *Symbol
	if ident, isIdent := n.Source.(*Identifier); isIdent {
		sym, ok := c.symbols().Resolve(ident.Name)
		if !ok {
			c.errorf(n.pos, "symbol %q could not be resolved", ident.Name)
			return
		}
		sourceSym = sym
	} else {
		c.compileExpr(n.Source)
		sym, ok := c.symbols().Define("@source", true)
		if !ok {
			c.errorf(n.pos, "could not define internal foreach source")
			return
		}
		sourceSym = sym
		c.writeSymbol(n.pos, sourceSym, true)
	}

	jumpToAfterUpdate := c.emit(n.pos, OpJump, 0xbeef)
	updateIP := c.ip()
	c.readSymbol(n.pos, indexSym)
	c.emit(n.pos, OpConstant, c.addConstant(NumberValue(1)))
	c.emit(n.pos, OpAdd)
	c.writeSymbol(n.pos, indexSym, false)
	c.changeOperand(jumpToAfterUpdate, c.ip())

	c.readSymbol(n.pos, sourceSym)
	c.emit(n.pos, OpLen)
	c.readSymbol(n.pos, indexSym)
	c.emit(n.pos, OpCompare)
	c.emit(n.pos, OpEqual)

	afterTest := c.ip()
	c.emit(n.pos, OpJumpIfFalse, afterTest+6)
	jumpToAfterBody := c.emit(n.pos, OpJump, 0xdead)

	c.readSymbol(n.pos, sourceSym)
	c.readSymbol(n.pos, indexSym)
	c.emit(n.pos, OpGetValueAt)

	iterSym, ok := c.symbols().Define(n.Iterator.Name, false)
	if !ok {
		c.errorf(n.pos, "symbol %q already defined in this scope", n.Iterator.Name)
		return
	}
	c.writeSymbol(n.pos, iterSym, true)

	scope := c.currentScope()
	scope.pushContinue(updateIP)
	scope.pushBreak(jumpToAfterBody)

	c.compileStmt(n.Body)

	scope.popBreak()
	scope.popContinue()

	c.emit(n.pos, OpJump, updateIP)
	c.changeOperand(jumpToAfterBody, c.ip())
}

// compileRecoverStmt installs a handler IP and guarantees it only
// catches errors raised after it for the rest of this block, ending in
// a mandatory return (spec.md §4.3 "Recover").
func (c *Compiler) compileRecoverStmt(n *RecoverStmt) {
	if c.symbols().Outer == nil {
		// module scope has no call frame to unwind into
		c.errorf(n.pos, "recover statement cannot be defined in global scope")
		return
	}
	if !c.symbols().IsTopBlock() {
		c.errorf(n.pos, "recover statement cannot be defined within other statements")
		return
	}

	recoverIP := c.emit(n.pos, OpSetRecover, 0xbeef)
	jumpPastHandler := c.emit(n.pos, OpJump, 0xbeef)
	c.changeOperand(recoverIP, c.ip())

	c.symbols().EnterBlock()
	errSym, ok := c.symbols().Define(n.Binding.Name, false)
	if !ok {
		c.errorf(n.pos, "symbol %q already defined in this scope", n.Binding.Name)
		c.symbols().LeaveBlock()
		return
	}
	c.writeSymbol(n.pos, errSym, true)

	for _, stmt := range n.Body.Statements {
		c.compileStmt(stmt)
	}

	if !c.lastOpcodeIs(OpReturn) && !c.lastOpcodeIs(OpReturnValue) {
		c.errorf(n.pos, "recover body must end with a return statement")
		c.symbols().LeaveBlock()
		return
	}
	c.symbols().LeaveBlock()

	c.changeOperand(jumpPastHandler, c.ip())
}

// compileImport resolves modulePath relative to the currently-compiling
// file (or as-is if absolute), detects cycles against the in-progress
// import stack, compiles the target file once per path (caching by
// canonical path), and re-exports its module globals into the current
// symbol table as `name::symbol`.
func (c *Compiler) compileImport(n *ImportStmt) {
	if c.symbols().Outer != nil || len(c.symbols().blocks) > 1 {
		c.errorf(n.pos, "modules can only be imported in global scope")
		return
	}

	currentFile := c.fileStack[len(c.fileStack)-1]
	dir := filepath.Dir(currentFile)
	moduleName := filepath.Base(n.Path)

	var target string
	if filepath.IsAbs(n.Path) {
		target = n.Path + ".ape"
	} else {
		target = filepath.Join(dir, n.Path+".ape")
	}
	target = canonicalPath(target)

	for _, inProgress := range c.fileStack {
		if inProgress == target {
			c.errorf(n.pos, "Cyclic reference of file %q", target)
			return
		}
	}

	importingTable := c.symbols()

	mod, ok := c.modules[target]
	if !ok {
		source, err := readImportSource(target)
		if err != nil {
			c.errorf(n.pos, "reading module file %q failed: %v", target, err)
			return
		}

		top := importingTable.top()
		globalOffset := top.offset + top.numDefinitions
		c.fileStack = append(c.fileStack, target)
		c.pushSymbolTable(NewFileSymbolTable(c.apeGlobal, globalOffset))

		parser := NewParser(target, source, c.errs, false)
		prog := parser.ParseProgram()
		if !c.errs.HasErrors() {
			foldProgram(prog)
			for _, stmt := range prog.Statements {
				c.compileStmt(stmt)
				if c.errs.HasErrors() {
					break
				}
			}
		}

		moduleGlobals := map[string]*Symbol{}
		for name, sym := range c.symbols().ModuleGlobalSymbols() {
			moduleGlobals[name] = sym
		}
		importedDefs := c.symbols().top().numDefinitions

		c.popSymbolTable()
		c.fileStack = c.fileStack[:len(c.fileStack)-1]

		if c.errs.HasErrors() {
			return
		}

		// carry the imported file's slot usage forward so the next
		// global defined in the importing file (or a sibling import)
		// gets a slot past every one the import just claimed.
		top.numDefinitions += importedDefs
		if top.offset+top.numDefinitions > importingTable.MaxNumDefinitions {
			importingTable.MaxNumDefinitions = top.offset + top.numDefinitions
		}

		mod = &importedModule{name: moduleName, globals: moduleGlobals}
		c.modules[target] = mod
	}

	for name, sym := range mod.globals {
		qualified := moduleName + "::" + name
		importingTable.moduleGlobals[qualified] = sym
		importingTable.blocks[0].store[qualified] = sym
	}
}

// readImportSource is a seam the Context overrides via SetFileRead; by
// default imports read straight off the local filesystem.
var readImportSource = defaultReadImportSource

// ---- symbol read/write ----

func (c *Compiler) readSymbol(pos SourcePosition, sym *Symbol) {
	switch sym.Scope {
	case ScopeModuleGlobal:
		c.emit(pos, OpGetModuleGlobal, sym.Index)
	case ScopeApeGlobal:
		c.emit(pos, OpGetApeGlobal, sym.Index)
	case ScopeLocal:
		c.emit(pos, OpGetLocal, sym.Index)
	case ScopeFree:
		c.emit(pos, OpGetFree, sym.Index)
	case ScopeFunctionSelf:
		c.emit(pos, OpCurrentFunction)
	case ScopeThis:
		c.emit(pos, OpGetThis)
	}
}

func (c *Compiler) writeSymbol(pos SourcePosition, sym *Symbol, define bool) {
	switch sym.Scope {
	case ScopeModuleGlobal:
		if define {
			c.emit(pos, OpDefineModuleGlobal, sym.Index)
		} else {
			c.emit(pos, OpSetModuleGlobal, sym.Index)
		}
	case ScopeLocal:
		if define {
			c.emit(pos, OpDefineLocal, sym.Index)
		} else {
			c.emit(pos, OpSetLocal, sym.Index)
		}
	case ScopeFree:
		c.emit(pos, OpSetFree, sym.Index)
	}
}

// ---- expressions ----

func (c *Compiler) compileExpr(e Expr) {
	switch n := e.(type) {
	case *NumberLiteral:
		c.emit(n.pos, OpConstant, c.addConstant(NumberValue(n.Value)))
	case *BoolLiteral:
		if n.Value {
			c.emit(n.pos, OpTrue)
		} else {
			c.emit(n.pos, OpFalse)
		}
	case *NullLiteral:
		c.emit(n.pos, OpNull)
	case *StringLiteral:
		o := c.heap.allocString(n.Value)
		c.emit(n.pos, OpConstant, c.addConstant(objectValue(TypeString, o)))
	case *ArrayLiteral:
		for _, el := range n.Elements {
			c.compileExpr(el)
		}
		c.emit(n.pos, OpArray, len(n.Elements))
	case *MapLiteral:
		c.emit(n.pos, OpMapStart, len(n.Keys))
		for i := range n.Keys {
			c.compileExpr(n.Keys[i])
			c.compileExpr(n.Values[i])
		}
		c.emit(n.pos, OpMapEnd, len(n.Keys))
	case *Identifier:
		sym, ok := c.symbols().Resolve(n.Name)
		if !ok {
			c.errorf(n.pos, "symbol %q could not be resolved", n.Name)
			return
		}
		c.readSymbol(n.pos, sym)
	case *PrefixExpr:
		c.compileExpr(n.Right)
		switch n.Operator {
		case TokenMinus:
			c.emit(n.pos, OpMinus)
		case TokenBang:
			c.emit(n.pos, OpBang)
		default:
			c.errorf(n.pos, "unknown prefix operator")
		}
	case *InfixExpr:
		c.compileInfixExpr(n)
	case *LogicalExpr:
		c.compileLogicalExpr(n)
	case *TernaryExpr:
		c.compileTernaryExpr(n)
	case *IndexExpr:
		c.compileExpr(n.Left)
		c.compileExpr(n.Index)
		c.emit(n.pos, OpGetIndex)
	case *CallExpr:
		c.compileExpr(n.Function)
		for _, arg := range n.Args {
			c.compileExpr(arg)
		}
		c.emit(n.pos, OpCall, len(n.Args))
	case *AssignExpr:
		c.compileAssignExpr(n)
	case *FunctionLiteral:
		c.compileFunctionLiteral(n)
	}
}

func (c *Compiler) compileInfixExpr(n *InfixExpr) {
	left, right := n.Left, n.Right
	rearrange := false
	var op Opcode
	switch n.Operator {
	case TokenPlus:
		op = OpAdd
	case TokenMinus:
		op = OpSub
	case TokenAsterisk:
		op = OpMul
	case TokenSlash:
		op = OpDiv
	case TokenPercent:
		op = OpMod
	case TokenBitOr:
		op = OpOr
	case TokenBitXor:
		op = OpXor
	case TokenBitAnd:
		op = OpAnd
	case TokenLShift:
		op = OpLShift
	case TokenRShift:
		op = OpRShift
	case TokenEq:
		op = OpEqual
	case TokenNotEq:
		op = OpNotEqual
	case TokenGT:
		op = OpGreaterThan
	case TokenGTE:
		op = OpGreaterThanEqual
	case TokenLT:
		op = OpGreaterThan
		rearrange = true
	case TokenLTE:
		op = OpGreaterThanEqual
		rearrange = true
	default:
		c.errorf(n.pos, "unknown infix operator")
		return
	}

	if rearrange {
		left, right = right, left
	}
	c.compileExpr(left)
	c.compileExpr(right)

	switch n.Operator {
	case TokenEq, TokenNotEq:
		c.emit(n.pos, OpCompareEq)
	case TokenGT, TokenGTE, TokenLT, TokenLTE:
		c.emit(n.pos, OpCompare)
	}
	c.emit(n.pos, op)
}

// compileLogicalExpr implements short-circuit && and || by duplicating
// the left operand and conditionally jumping past the right operand,
// matching original_source/compiler.c's EXPRESSION_LOGICAL lowering.
func (c *Compiler) compileLogicalExpr(n *LogicalExpr) {
	c.compileExpr(n.Left)
	c.emit(n.pos, OpDup)
	var afterLeftJump int
	if n.Operator == TokenAnd {
		afterLeftJump = c.emit(n.pos, OpJumpIfFalse, 0xbeef)
	} else {
		afterLeftJump = c.emit(n.pos, OpJumpIfTrue, 0xbeef)
	}
	c.emit(n.pos, OpPop)
	c.compileExpr(n.Right)
	c.changeOperand(afterLeftJump, c.ip())
}

func (c *Compiler) compileTernaryExpr(n *TernaryExpr) {
	c.compileExpr(n.Condition)
	jumpToAlt := c.emit(n.pos, OpJumpIfFalse, 0xbeef)
	c.compileExpr(n.Consequence)
	jumpToEnd := c.emit(n.pos, OpJump, 0xbeef)
	c.changeOperand(jumpToAlt, c.ip())
	c.compileExpr(n.Alternative)
	c.changeOperand(jumpToEnd, c.ip())
}

// compileAssignExpr compiles `x = y`, `x op= y` (already desugared to
// plain assignment by the parser) and postfix `x++`/`x--`. It always
// leaves the assignment's value on the stack via DUP, popping the extra
// copy afterward for postfix so the expression evaluates to the
// pre-increment value (original_source/compiler.c EXPRESSION_ASSIGN).
func (c *Compiler) compileAssignExpr(n *AssignExpr) {
	switch n.Dest.(type) {
	case *Identifier, *IndexExpr:
	default:
		c.errorf(n.pos, "expression is not assignable")
		return
	}

	if n.Postfix {
		c.compileExpr(n.Dest)
	}

	c.compileExpr(n.Value)
	c.emit(n.pos, OpDup)

	switch dest := n.Dest.(type) {
	case *Identifier:
		sym, ok := c.symbols().Resolve(dest.Name)
		if !ok {
			// spec.md §9: an assign to an unresolved name implicitly
			// defines it in the current scope (a module global at top
			// level, a local inside a function) rather than erroring.
			sym, ok = c.symbols().Define(dest.Name, true)
			if !ok {
				c.errorf(dest.pos, "symbol %q already defined in this scope", dest.Name)
				return
			}
		}
		if !sym.Assignable {
			c.errorf(dest.pos, "symbol %q is not assignable", dest.Name)
			return
		}
		c.writeSymbol(dest.pos, sym, false)
	case *IndexExpr:
		c.compileExpr(dest.Left)
		c.compileExpr(dest.Index)
		c.emit(n.pos, OpSetIndex)
	}

	if n.Postfix {
		c.emit(n.pos, OpPop)
	}
}

// compileFunctionLiteral compiles the body in its own compilation scope
// and symbol table, then emits the free-variable loads and FUNCTION
// opcode in the *enclosing* scope.
func (c *Compiler) compileFunctionLiteral(n *FunctionLiteral) {
	c.pushCompilationScope()
	c.pushSymbolTable(NewEnclosedSymbolTable(c.symbols()))

	if n.Name != "" {
		c.symbols().DefineFunctionName(n.Name)
	}
	c.symbols().DefineThis()

	for _, p := range n.Params {
		if _, ok := c.symbols().Define(p.Name, true); !ok {
			c.errorf(p.pos, "symbol %q already defined in this scope", p.Name)
		}
	}

	for _, stmt := range n.Body.Statements {
		c.compileStmt(stmt)
	}
	if !c.lastOpcodeIs(OpReturnValue) && !c.lastOpcodeIs(OpReturn) {
		c.emit(n.pos, OpReturn)
	}

	freeSymbols := c.symbols().FreeSymbols
	numLocals := c.symbols().MaxNumDefinitions

	compiled := c.popCompilationScope()
	c.popSymbolTable()

	fn := &functionData{name: n.Name, ownsData: true, compiled: compiled, numLocals: numLocals, numArgs: len(n.Params)}
	obj := c.heap.allocFunction(fn)

	for i := range freeSymbols {
		c.readSymbol(n.pos, &freeSymbols[i])
	}

	pos := c.addConstant(objectValue(TypeFunction, obj))
	c.emit(n.pos, OpFunction, pos, len(freeSymbols))
}
