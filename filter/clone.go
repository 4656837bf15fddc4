package filter

import "bytes"

// Copy returns a deep copy of e. Constant byte slices are duplicated, other
// constant values are immutable and shared.
func Copy(e Expression) Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *VarExpression:
		c := *n
		return &c
	case *ConstExpression:
		c := *n
		if b, ok := n.Value.Data.([]byte); ok {
			c.Value.Data = bytes.Clone(b)
		}
		return &c
	case *OpExpression:
		c := *n
		c.Args = copyArgs(n.Args)
		return &c
	case *NullTestExpression:
		c := *n
		c.Arg = Copy(n.Arg)
		return &c
	case *BoolExpression:
		c := *n
		c.Args = copyArgs(n.Args)
		return &c
	case *FuncExpression:
		c := *n
		c.Args = copyArgs(n.Args)
		return &c
	case *SubLinkExpression:
		c := *n
		return &c
	case *ParamExpression:
		c := *n
		return &c
	case *UnsupportedExpression:
		c := *n
		return &c
	default:
		return e
	}
}

func copyArgs(args []Expression) []Expression {
	if args == nil {
		return nil
	}
	out := make([]Expression, len(args))
	for i, a := range args {
		out[i] = Copy(a)
	}
	return out
}

// Walk visits e and its descendants in pre-order. If fn returns false the
// children of that node are skipped.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *OpExpression:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *NullTestExpression:
		Walk(n.Arg, fn)
	case *BoolExpression:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *FuncExpression:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	}
}

// ChangeVarNodes rewrites, in place, every column reference at query level
// levelsUp that points at range table entry fromRel so that it points at
// toRel instead.
func ChangeVarNodes(e Expression, fromRel, toRel, levelsUp int) {
	Walk(e, func(n Expression) bool {
		if v, ok := n.(*VarExpression); ok && v.RelIndex == fromRel && v.LevelsUp == levelsUp {
			v.RelIndex = toRel
		}
		return true
	})
}
