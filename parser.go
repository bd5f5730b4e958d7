package ape

import (
	"strconv"
)

// Precedence ladder, lowest to highest, per spec.md §4.2.
const (
	precLowest int = iota
	precAssign
	precTernary
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquals
	precLessGreater
	precShift
	precSum
	precProduct
	precPrefix
	precPostfix
	precIncDec
	precCall
	precIndex
)

var precedences = map[TokenType]int{
	TokenAssign:         precAssign,
	TokenPlusAssign:     precAssign,
	TokenMinusAssign:    precAssign,
	TokenAsteriskAssign: precAssign,
	TokenSlashAssign:    precAssign,
	TokenPercentAssign:  precAssign,
	TokenBitAndAssign:   precAssign,
	TokenBitOrAssign:    precAssign,
	TokenBitXorAssign:   precAssign,
	TokenLShiftAssign:   precAssign,
	TokenRShiftAssign:   precAssign,
	TokenQuestion:       precTernary,
	TokenOr:             precLogicalOr,
	TokenAnd:            precLogicalAnd,
	TokenBitOr:          precBitOr,
	TokenBitXor:         precBitXor,
	TokenBitAnd:         precBitAnd,
	TokenEq:             precEquals,
	TokenNotEq:          precEquals,
	TokenLT:             precLessGreater,
	TokenGT:             precLessGreater,
	TokenLTE:            precLessGreater,
	TokenGTE:            precLessGreater,
	TokenLShift:         precShift,
	TokenRShift:         precShift,
	TokenPlus:           precSum,
	TokenMinus:          precSum,
	TokenAsterisk:       precProduct,
	TokenSlash:          precProduct,
	TokenPercent:        precProduct,
	TokenIncr:           precIncDec,
	TokenDecr:           precIncDec,
	TokenLParen:         precCall,
	TokenLBracket:       precIndex,
}

var compoundOpOf = map[TokenType]TokenType{
	TokenPlusAssign:     TokenPlus,
	TokenMinusAssign:    TokenMinus,
	TokenAsteriskAssign: TokenAsterisk,
	TokenSlashAssign:    TokenSlash,
	TokenPercentAssign:  TokenPercent,
	TokenBitAndAssign:   TokenBitAnd,
	TokenBitOrAssign:    TokenBitOr,
	TokenBitXorAssign:   TokenBitXor,
	TokenLShiftAssign:   TokenLShift,
	TokenRShiftAssign:   TokenRShift,
}

// Parser is a Pratt (precedence-climbing) parser: dispatch is driven by
// two token-keyed tables, one for prefix ("null denotation") position
// and one for infix ("left denotation") position.
type Parser struct {
	lexer  *Lexer
	errors *ErrorList

	cur, peek Token
	replMode  bool

	prefixFns map[TokenType]func() Expr
	infixFns  map[TokenType]func(Expr) Expr
}

func NewParser(file, source string, errors *ErrorList, replMode bool) *Parser {
	p := &Parser{lexer: NewLexer(file, source), errors: errors, replMode: replMode}
	p.prefixFns = map[TokenType]func() Expr{
		TokenIdent:               p.parseIdentifier,
		TokenNumber:              p.parseNumberLiteral,
		TokenString:              p.parseStringLiteral,
		TokenTemplateStringStart: p.parseTemplateString,
		TokenTrue:                p.parseBoolLiteral,
		TokenFalse:               p.parseBoolLiteral,
		TokenNull:                p.parseNullLiteral,
		TokenBang:                p.parsePrefixExpr,
		TokenMinus:               p.parsePrefixExpr,
		TokenLParen:              p.parseGroupedExpr,
		TokenLBracket:            p.parseArrayLiteral,
		TokenLBrace:              p.parseMapLiteral,
		TokenFunction:            p.parseFunctionLiteral,
	}
	p.infixFns = map[TokenType]func(Expr) Expr{
		TokenPlus:     p.parseInfixExpr,
		TokenMinus:    p.parseInfixExpr,
		TokenAsterisk: p.parseInfixExpr,
		TokenSlash:    p.parseInfixExpr,
		TokenPercent:  p.parseInfixExpr,
		TokenEq:       p.parseInfixExpr,
		TokenNotEq:    p.parseInfixExpr,
		TokenLT:       p.parseInfixExpr,
		TokenGT:       p.parseInfixExpr,
		TokenLTE:      p.parseInfixExpr,
		TokenGTE:      p.parseInfixExpr,
		TokenBitAnd:   p.parseInfixExpr,
		TokenBitOr:    p.parseInfixExpr,
		TokenBitXor:   p.parseInfixExpr,
		TokenLShift:   p.parseInfixExpr,
		TokenRShift:   p.parseInfixExpr,
		TokenAnd:      p.parseLogicalExpr,
		TokenOr:       p.parseLogicalExpr,
		TokenQuestion: p.parseTernaryExpr,
		TokenLParen:   p.parseCallExpr,
		TokenLBracket: p.parseIndexExpr,
		TokenAssign:   p.parseAssignExpr,
		TokenIncr:     p.parsePostfixExpr,
		TokenDecr:     p.parsePostfixExpr,
	}
	for tt := range compoundOpOf {
		p.infixFns[tt] = p.parseCompoundAssignExpr
	}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) nextTokenTemplate() {
	p.cur = p.peek
	p.peek = p.lexer.ContinueTemplateString()
}

func (p *Parser) errorf(pos SourcePosition, format string, args ...any) {
	p.errors.add(newError(ErrorParsing, pos, format, args...))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peek.Type]; ok {
		return pr
	}
	return precLowest
}

// ParseProgram parses the whole token stream, recovering at the next
// statement boundary after any error so one bad statement doesn't stop
// parsing of the rest of the file (spec.md §4.2 Failure).
func (p *Parser) ParseProgram() *Program {
	prog := &Program{base: base{pos: p.cur.Pos}}
	for p.cur.Type != TokenEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.nextToken()
	}
	return prog
}

func (p *Parser) parseStatement() Stmt {
	switch p.cur.Type {
	case TokenVar, TokenConst:
		return p.parseDefineStmt()
	case TokenIf:
		return p.parseIfStmt()
	case TokenWhile:
		return p.parseWhileStmt()
	case TokenFor:
		return p.parseForOrForEachStmt()
	case TokenReturn:
		return p.parseReturnStmt()
	case TokenBreak:
		stmt := &BreakStmt{base{p.cur.Pos}}
		p.skipSemicolon()
		return stmt
	case TokenContinue:
		stmt := &ContinueStmt{base{p.cur.Pos}}
		p.skipSemicolon()
		return stmt
	case TokenSemicolon:
		return nil
	case TokenImport:
		return p.parseImportStmt()
	case TokenRecover:
		return p.parseRecoverStmt()
	case TokenLBrace:
		if p.replMode {
			return p.parseExpressionStmt()
		}
		return p.parseBlockStatement()
	default:
		return p.parseExpressionStmt()
	}
}

func (p *Parser) expectPeek(tt TokenType, what string) bool {
	if p.peek.Type != tt {
		p.errorf(p.peek.Pos, "expected %s, got %q", what, p.peek.Literal)
		return false
	}
	p.nextToken()
	return true
}

func (p *Parser) parseDefineStmt() Stmt {
	pos := p.cur.Pos
	assignable := p.cur.Type == TokenVar
	if !p.expectPeek(TokenIdent, "identifier") {
		return nil
	}
	name := &Identifier{base{p.cur.Pos}, p.cur.Literal}
	if !p.expectPeek(TokenAssign, "'='") {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(precLowest)
	if fl, ok := value.(*FunctionLiteral); ok && fl.Name == "" {
		fl.Name = name.Name
	}
	p.skipSemicolon()
	return &DefineStmt{base{pos}, name, value, assignable}
}

func (p *Parser) skipSemicolon() {
	if p.peek.Type == TokenSemicolon {
		p.nextToken()
	}
}

func (p *Parser) parseExpressionStmt() Stmt {
	pos := p.cur.Pos
	expr := p.parseExpression(precLowest)
	p.skipSemicolon()
	if expr == nil {
		return nil
	}
	return &ExpressionStmt{base{pos}, expr}
}

func (p *Parser) parseExpression(precedence int) Expr {
	prefix, ok := p.prefixFns[p.cur.Type]
	if !ok {
		p.errorf(p.cur.Pos, "no prefix parse function for %q", p.cur.Literal)
		return nil
	}
	left := prefix()
	for p.peek.Type != TokenSemicolon && precedence < p.peekPrecedence() {
		infix, ok := p.infixFns[p.peek.Type]
		if !ok {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() Expr {
	return &Identifier{base{p.cur.Pos}, p.cur.Literal}
}

func (p *Parser) parseNumberLiteral() Expr {
	v, err := strconv.ParseFloat(p.cur.Literal, 64)
	if err != nil {
		p.errorf(p.cur.Pos, "invalid number literal %q", p.cur.Literal)
		return nil
	}
	return &NumberLiteral{base{p.cur.Pos}, v}
}

func (p *Parser) parseStringLiteral() Expr {
	return &StringLiteral{base{p.cur.Pos}, p.cur.Literal}
}

func (p *Parser) parseBoolLiteral() Expr {
	return &BoolLiteral{base{p.cur.Pos}, p.cur.Type == TokenTrue}
}

func (p *Parser) parseNullLiteral() Expr {
	return &NullLiteral{base{p.cur.Pos}}
}

// parseTemplateString rewrites "…{expr}…" into "…" + to_str(expr) +
// "…", matching the desugaring original_source/parser.c performs
// (spec.md §4.2, §8 law "Template desugaring"). A template string
// carries exactly one interpolation.
func (p *Parser) parseTemplateString() Expr {
	pos := p.cur.Pos
	left := &StringLiteral{base{pos}, p.cur.Literal}
	p.nextToken()
	inner := p.parseExpression(precLowest)
	toStr := &CallExpr{
		base{inner.Pos()},
		&Identifier{base{inner.Pos()}, "to_str"},
		[]Expr{inner},
	}
	if p.peek.Type != TokenRBrace {
		p.errorf(p.peek.Pos, "expected '}' to close template interpolation, got %q", p.peek.Literal)
		return nil
	}
	leftAdd := &InfixExpr{base{pos}, TokenPlus, left, toStr}
	// cur becomes the '}' (old peek); peek is rescanned as the
	// template's literal tail rather than ordinary source code.
	p.nextTokenTemplate()
	// cur becomes the tail chunk; peek resumes normal tokenization,
	// which is now correctly positioned right after the closing quote.
	p.nextToken()
	tail := &StringLiteral{base{p.cur.Pos}, p.cur.Literal}
	return &InfixExpr{base{pos}, TokenPlus, leftAdd, tail}
}

func (p *Parser) parseFunctionLiteral() Expr {
	pos := p.cur.Pos
	if !p.expectPeek(TokenLParen, "'('") {
		return nil
	}
	params := p.parseFunctionParams()
	if !p.expectPeek(TokenLBrace, "'{'") {
		return nil
	}
	body := p.parseBlockStatement()
	return &FunctionLiteral{base{pos}, "", params, body}
}

func (p *Parser) parseFunctionParams() []*Identifier {
	var params []*Identifier
	if p.peek.Type == TokenRParen {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, &Identifier{base{p.cur.Pos}, p.cur.Literal})
	for p.peek.Type == TokenComma {
		p.nextToken()
		p.nextToken()
		params = append(params, &Identifier{base{p.cur.Pos}, p.cur.Literal})
	}
	if !p.expectPeek(TokenRParen, "')'") {
		return nil
	}
	return params
}

func (p *Parser) parseGroupedExpr() Expr {
	p.nextToken()
	expr := p.parseExpression(precLowest)
	if !p.expectPeek(TokenRParen, "')'") {
		return nil
	}
	return expr
}

func (p *Parser) parseArrayLiteral() Expr {
	pos := p.cur.Pos
	elems := p.parseExprList(TokenRBracket)
	return &ArrayLiteral{base{pos}, elems}
}

func (p *Parser) parseExprList(end TokenType) []Expr {
	var list []Expr
	if p.peek.Type == end {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(precLowest))
	for p.peek.Type == TokenComma {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(precLowest))
	}
	if !p.expectPeek(end, "closing delimiter") {
		return nil
	}
	return list
}

// parseMapLiteral parses `{ key: value, ... }`; a bare identifier key is
// taken as a string key, not as a variable reference. In REPL mode,
// parseStatement routes a leading `{` to parseExpressionStmt instead of
// parseBlockStatement, so a top-level `{` is always parsed as a map
// literal rather than a block.
func (p *Parser) parseMapLiteral() Expr {
	pos := p.cur.Pos
	var keys, values []Expr
	for p.peek.Type != TokenRBrace {
		p.nextToken()
		key := p.parseExpression(precLowest)
		if ident, ok := key.(*Identifier); ok {
			key = &StringLiteral{base{ident.pos}, ident.Name}
		}
		if !p.expectPeek(TokenColon, "':'") {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(precLowest)
		keys = append(keys, key)
		values = append(values, value)
		if p.peek.Type == TokenComma {
			p.nextToken()
		}
	}
	if !p.expectPeek(TokenRBrace, "'}'") {
		return nil
	}
	return &MapLiteral{base{pos}, keys, values}
}

func (p *Parser) parsePrefixExpr() Expr {
	pos, op := p.cur.Pos, p.cur.Type
	p.nextToken()
	right := p.parseExpression(precPrefix)
	return &PrefixExpr{base{pos}, op, right}
}

func (p *Parser) parseInfixExpr(left Expr) Expr {
	pos, op := p.cur.Pos, p.cur.Type
	precedence := precedences[p.cur.Type]
	p.nextToken()
	right := p.parseExpression(precedence)
	return &InfixExpr{base{pos}, op, left, right}
}

func (p *Parser) parseLogicalExpr(left Expr) Expr {
	pos, op := p.cur.Pos, p.cur.Type
	precedence := precedences[p.cur.Type]
	p.nextToken()
	right := p.parseExpression(precedence)
	return &LogicalExpr{base{pos}, op, left, right}
}

func (p *Parser) parseTernaryExpr(cond Expr) Expr {
	pos := p.cur.Pos
	p.nextToken()
	cons := p.parseExpression(precLowest)
	if !p.expectPeek(TokenColon, "':'") {
		return nil
	}
	p.nextToken()
	alt := p.parseExpression(precTernary)
	return &TernaryExpr{base{pos}, cond, cons, alt}
}

func (p *Parser) parseCallExpr(fn Expr) Expr {
	pos := p.cur.Pos
	args := p.parseExprList(TokenRParen)
	return &CallExpr{base{pos}, fn, args}
}

func (p *Parser) parseIndexExpr(left Expr) Expr {
	pos := p.cur.Pos
	p.nextToken()
	idx := p.parseExpression(precLowest)
	if !p.expectPeek(TokenRBracket, "']'") {
		return nil
	}
	return &IndexExpr{base{pos}, left, idx}
}

func (p *Parser) parseAssignExpr(left Expr) Expr {
	pos := p.cur.Pos
	p.nextToken()
	value := p.parseExpression(precAssign - 1)
	return &AssignExpr{base{pos}, left, value, false}
}

// parseCompoundAssignExpr rewrites `x op= y` into `x = x op y`, sharing a
// deep copy of the destination so the read and write halves don't alias
// the same node (spec.md §4.2, §8 law "Compound assignment").
func (p *Parser) parseCompoundAssignExpr(left Expr) Expr {
	pos := p.cur.Pos
	op := compoundOpOf[p.cur.Type]
	p.nextToken()
	rhs := p.parseExpression(precAssign - 1)
	combined := &InfixExpr{base{pos}, op, deepCopyExpr(left), rhs}
	return &AssignExpr{base{pos}, left, combined, false}
}

// parsePostfixExpr rewrites `x++`/`x--` into `x = x + 1`/`x = x - 1`
// with Postfix set so the VM preserves the pre-increment value on the
// stack (spec.md §4.2, §4.5).
func (p *Parser) parsePostfixExpr(left Expr) Expr {
	pos := p.cur.Pos
	op := TokenPlus
	if p.cur.Type == TokenDecr {
		op = TokenMinus
	}
	one := &NumberLiteral{base{pos}, 1}
	combined := &InfixExpr{base{pos}, op, deepCopyExpr(left), one}
	return &AssignExpr{base{pos}, left, combined, true}
}

func (p *Parser) parseBlockStatement() *BlockStmt {
	pos := p.cur.Pos
	block := &BlockStmt{base: base{pos}}
	p.nextToken()
	for p.cur.Type != TokenRBrace && p.cur.Type != TokenEOF {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseIfStmt() Stmt {
	pos := p.cur.Pos
	stmt := &IfStmt{base: base{pos}}
	for {
		if !p.expectPeek(TokenLParen, "'('") {
			return nil
		}
		p.nextToken()
		cond := p.parseExpression(precLowest)
		if !p.expectPeek(TokenRParen, "')'") {
			return nil
		}
		if !p.expectPeek(TokenLBrace, "'{'") {
			return nil
		}
		cons := p.parseBlockStatement()
		stmt.Cases = append(stmt.Cases, IfCase{cond, cons})

		if p.peek.Type == TokenElse {
			p.nextToken()
			if p.peek.Type == TokenIf {
				p.nextToken()
				continue
			}
			if !p.expectPeek(TokenLBrace, "'{'") {
				return nil
			}
			stmt.Alternative = p.parseBlockStatement()
		}
		return stmt
	}
}

func (p *Parser) parseWhileStmt() Stmt {
	pos := p.cur.Pos
	if !p.expectPeek(TokenLParen, "'('") {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(precLowest)
	if !p.expectPeek(TokenRParen, "')'") {
		return nil
	}
	if !p.expectPeek(TokenLBrace, "'{'") {
		return nil
	}
	body := p.parseBlockStatement()
	return &WhileStmt{base{pos}, cond, body}
}

// parseForOrForEachStmt disambiguates `for (init; test; update)` from
// `for (x in seq)` by lookahead: after `for (identifier`, the next token
// decides which form this is.
func (p *Parser) parseForOrForEachStmt() Stmt {
	pos := p.cur.Pos
	if !p.expectPeek(TokenLParen, "'('") {
		return nil
	}
	if p.peek.Type == TokenIdent {
		save := *p.lexer
		saveCur, savePeek := p.cur, p.peek
		p.nextToken()
		ident := &Identifier{base{p.cur.Pos}, p.cur.Literal}
		if p.peek.Type == TokenIn {
			p.nextToken()
			p.nextToken()
			source := p.parseExpression(precLowest)
			if !p.expectPeek(TokenRParen, "')'") {
				return nil
			}
			if !p.expectPeek(TokenLBrace, "'{'") {
				return nil
			}
			body := p.parseBlockStatement()
			return &ForEachStmt{base{pos}, ident, source, body}
		}
		*p.lexer = save
		p.cur, p.peek = saveCur, savePeek
	}
	return p.parseClassicForStmt(pos)
}

func (p *Parser) parseClassicForStmt(pos SourcePosition) Stmt {
	var init Stmt
	if p.peek.Type != TokenSemicolon {
		p.nextToken()
		init = p.parseSimpleStmt()
	} else {
		p.nextToken()
	}
	if !p.expectPeek(TokenSemicolon, "';'") {
		return nil
	}
	var test Expr
	if p.peek.Type != TokenSemicolon {
		p.nextToken()
		test = p.parseExpression(precLowest)
	}
	if !p.expectPeek(TokenSemicolon, "';'") {
		return nil
	}
	var update Stmt
	if p.peek.Type != TokenRParen {
		p.nextToken()
		update = p.parseSimpleStmt()
	}
	if !p.expectPeek(TokenRParen, "')'") {
		return nil
	}
	if !p.expectPeek(TokenLBrace, "'{'") {
		return nil
	}
	body := p.parseBlockStatement()
	return &ForStmt{base{pos}, init, test, update, body}
}

// parseSimpleStmt parses a define or expression statement without
// consuming a trailing semicolon, for use inside a classic for-header.
func (p *Parser) parseSimpleStmt() Stmt {
	switch p.cur.Type {
	case TokenVar, TokenConst:
		pos := p.cur.Pos
		assignable := p.cur.Type == TokenVar
		if !p.expectPeek(TokenIdent, "identifier") {
			return nil
		}
		name := &Identifier{base{p.cur.Pos}, p.cur.Literal}
		if !p.expectPeek(TokenAssign, "'='") {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(precLowest)
		return &DefineStmt{base{pos}, name, value, assignable}
	default:
		pos := p.cur.Pos
		expr := p.parseExpression(precLowest)
		return &ExpressionStmt{base{pos}, expr}
	}
}

func (p *Parser) parseReturnStmt() Stmt {
	pos := p.cur.Pos
	if p.peek.Type == TokenSemicolon || p.peek.Type == TokenRBrace {
		p.skipSemicolon()
		return &ReturnStmt{base: base{pos}}
	}
	p.nextToken()
	value := p.parseExpression(precLowest)
	p.skipSemicolon()
	return &ReturnStmt{base{pos}, value}
}

func (p *Parser) parseImportStmt() Stmt {
	pos := p.cur.Pos
	if !p.expectPeek(TokenString, "import path string") {
		return nil
	}
	path := p.cur.Literal
	p.skipSemicolon()
	return &ImportStmt{base{pos}, path}
}

// parseRecoverStmt parses `recover(e) { ... }`. Validity constraints
// (inside a function only, top of block only, handler must end in
// return) are enforced by the compiler, not the parser — spec.md §4.3.
func (p *Parser) parseRecoverStmt() Stmt {
	pos := p.cur.Pos
	if !p.expectPeek(TokenLParen, "'('") {
		return nil
	}
	if !p.expectPeek(TokenIdent, "identifier") {
		return nil
	}
	binding := &Identifier{base{p.cur.Pos}, p.cur.Literal}
	if !p.expectPeek(TokenRParen, "')'") {
		return nil
	}
	if !p.expectPeek(TokenLBrace, "'{'") {
		return nil
	}
	body := p.parseBlockStatement()
	return &RecoverStmt{base{pos}, binding, body}
}
