package ape

// foldConstants walks e bottom-up and collapses prefix/infix expressions
// whose operands are already literals into a single literal node, so the
// compiler never emits an opcode for them (spec.md §8 "Constant folding").
// It does not touch LogicalExpr (&&/||), since those short-circuit and
// folding would change which side is evaluated.
func foldConstants(e Expr) Expr {
	switch n := e.(type) {
	case *PrefixExpr:
		n.Right = foldConstants(n.Right)
		if folded, ok := foldPrefixExpr(n); ok {
			return folded
		}
		return n

	case *InfixExpr:
		n.Left = foldConstants(n.Left)
		n.Right = foldConstants(n.Right)
		if folded, ok := foldInfixExpr(n); ok {
			return folded
		}
		return n

	case *LogicalExpr:
		n.Left = foldConstants(n.Left)
		n.Right = foldConstants(n.Right)
		return n

	case *TernaryExpr:
		n.Condition = foldConstants(n.Condition)
		n.Consequence = foldConstants(n.Consequence)
		n.Alternative = foldConstants(n.Alternative)
		if cond, ok := n.Condition.(*BoolLiteral); ok {
			if cond.Value {
				return n.Consequence
			}
			return n.Alternative
		}
		return n

	case *ArrayLiteral:
		for i := range n.Elements {
			n.Elements[i] = foldConstants(n.Elements[i])
		}
		return n

	case *MapLiteral:
		for i := range n.Keys {
			n.Keys[i] = foldConstants(n.Keys[i])
		}
		for i := range n.Values {
			n.Values[i] = foldConstants(n.Values[i])
		}
		return n

	case *CallExpr:
		n.Function = foldConstants(n.Function)
		for i := range n.Args {
			n.Args[i] = foldConstants(n.Args[i])
		}
		return n

	case *IndexExpr:
		n.Left = foldConstants(n.Left)
		n.Index = foldConstants(n.Index)
		return n

	case *AssignExpr:
		n.Value = foldConstants(n.Value)
		return n

	case *FunctionLiteral:
		foldConstantsInBlock(n.Body)
		return n

	default:
		return e
	}
}

// foldConstantsInStmt applies folding to every expression reachable from
// stmt, recursing into nested blocks.
func foldConstantsInStmt(s Stmt) {
	switch n := s.(type) {
	case *ExpressionStmt:
		n.Expression = foldConstants(n.Expression)
	case *DefineStmt:
		n.Value = foldConstants(n.Value)
	case *IfStmt:
		for i := range n.Cases {
			n.Cases[i].Condition = foldConstants(n.Cases[i].Condition)
			foldConstantsInBlock(n.Cases[i].Consequence)
		}
		if n.Alternative != nil {
			foldConstantsInBlock(n.Alternative)
		}
	case *WhileStmt:
		n.Condition = foldConstants(n.Condition)
		foldConstantsInBlock(n.Body)
	case *ForStmt:
		if n.Init != nil {
			foldConstantsInStmt(n.Init)
		}
		if n.Test != nil {
			n.Test = foldConstants(n.Test)
		}
		if n.Update != nil {
			foldConstantsInStmt(n.Update)
		}
		foldConstantsInBlock(n.Body)
	case *ForEachStmt:
		n.Source = foldConstants(n.Source)
		foldConstantsInBlock(n.Body)
	case *BlockStmt:
		foldConstantsInBlock(n)
	case *ReturnStmt:
		if n.Value != nil {
			n.Value = foldConstants(n.Value)
		}
	case *RecoverStmt:
		foldConstantsInBlock(n.Body)
	}
}

func foldConstantsInBlock(b *BlockStmt) {
	for _, s := range b.Statements {
		foldConstantsInStmt(s)
	}
}

// foldProgram folds every top-level statement of a parsed file in place.
func foldProgram(p *Program) {
	for _, s := range p.Statements {
		foldConstantsInStmt(s)
	}
}

func foldPrefixExpr(n *PrefixExpr) (Expr, bool) {
	switch right := n.Right.(type) {
	case *NumberLiteral:
		switch n.Operator {
		case TokenMinus:
			return &NumberLiteral{base{n.pos}, -right.Value}, true
		}
	case *BoolLiteral:
		switch n.Operator {
		case TokenBang:
			return &BoolLiteral{base{n.pos}, !right.Value}, true
		}
	}
	return nil, false
}

func foldInfixExpr(n *InfixExpr) (Expr, bool) {
	switch left := n.Left.(type) {
	case *NumberLiteral:
		right, ok := n.Right.(*NumberLiteral)
		if !ok {
			return nil, false
		}
		if result, ok := binaryNumeric(n.Operator, left.Value, right.Value); ok {
			return &NumberLiteral{base{n.pos}, result}, true
		}
		if result, ok := binaryBitwise(n.Operator, left.Value, right.Value); ok {
			return &NumberLiteral{base{n.pos}, result}, true
		}
		if isComparisonOp(n.Operator) {
			ordering := compareFloat(left.Value, right.Value)
			return &BoolLiteral{base{n.pos}, orderingToBool(n.Operator, ordering)}, true
		}

	case *StringLiteral:
		right, ok := n.Right.(*StringLiteral)
		if !ok {
			return nil, false
		}
		switch n.Operator {
		case TokenPlus:
			return &StringLiteral{base{n.pos}, left.Value + right.Value}, true
		}
		// String relational comparisons are deliberately not folded: the
		// VM orders strings by length first, then hash, then lexicographic
		// (see compareStrings in value.go), which plain Go string
		// comparison does not reproduce. Folding here would let
		// "b" < "aa" evaluate differently depending on whether the
		// operands happened to be literals.

	case *BoolLiteral:
		right, ok := n.Right.(*BoolLiteral)
		if !ok || !isComparisonOp(n.Operator) {
			return nil, false
		}
		ordering := 0
		switch {
		case !left.Value && right.Value:
			ordering = -1
		case left.Value && !right.Value:
			ordering = 1
		}
		return &BoolLiteral{base{n.pos}, orderingToBool(n.Operator, ordering)}, true
	}
	return nil, false
}
