// Package pushdown decides which parts of a host filter tree can be
// evaluated by the remote Informix server.
//
// The analyzer flattens the tree into an ordered list of fragments: accepted
// leaf predicates (comparisons and null tests over the scanned relation's
// columns and constants) interleaved with the connective markers of their
// parents. Unsupported leaves are omitted while their siblings are still
// considered. Pushdown only ever narrows the remote result; the full filter
// is always re-evaluated locally.
package pushdown

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/filter"
)

// ErrUnknownBoolOp is returned for a connective that is not AND, OR or NOT.
var ErrUnknownBoolOp = errors.New("unsupported boolean expression type")

// Analyzer walks filter trees for one foreign relation.
type Analyzer struct {
	ops     catalog.OperatorCatalog
	deparse filter.Encoder
	logger  *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for rejected-node diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// New creates an Analyzer. deparse renders accepted nodes; it must be scoped
// to the target relation with column references at range table index 1.
func New(ops catalog.OperatorCatalog, deparse filter.Encoder, opts ...Option) *Analyzer {
	a := &Analyzer{
		ops:     ops,
		deparse: deparse,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ancestry records the connectives above the node being walked.
type ancestry struct {
	and bool
}

// Analyze appends the pushable fragments of root to ctx. The tree is not
// modified. The only error is ErrUnknownBoolOp.
func (a *Analyzer) Analyze(root filter.Expression, ctx *Context) error {
	return a.walk(root, ctx, ancestry{})
}

// AnalyzeClauses analyzes a list of implicitly AND-ed clauses.
func (a *Analyzer) AnalyzeClauses(clauses []filter.Expression, ctx *Context) error {
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return a.Analyze(clauses[0], ctx)
	default:
		return a.Analyze(filter.And(clauses...), ctx)
	}
}

func (a *Analyzer) walk(node filter.Expression, ctx *Context, anc ancestry) error {
	if node == nil {
		return nil
	}

	var accepted bool
	switch n := node.(type) {
	case *filter.BoolExpression:
		return a.walkBool(n, ctx, anc)
	case *filter.NullTestExpression:
		accepted = a.nullTest(n, ctx)
	case *filter.OpExpression:
		accepted = a.opExpr(n, ctx)
	default:
		a.logger.Debug("pushdown: node not supported",
			slog.String("relation", ctx.RelationName),
			slog.String("class", string(node.Class())))
	}

	if !accepted {
		ctx.inexact = true
	}
	return nil
}

func (a *Analyzer) walkBool(b *filter.BoolExpression, ctx *Context, anc ancestry) error {
	var marker OprType
	switch b.Type() {
	case filter.TypeAnd:
		marker = OprAnd
	case filter.TypeOr:
		marker = OprOr
		if anc.and {
			// "(a OR b) AND c" would concatenate to "a OR b AND c".
			ctx.inexact = true
		}
	case filter.TypeNot:
		marker = OprNot
		ctx.negated = true
	default:
		return fmt.Errorf("%w %q", ErrUnknownBoolOp, b.Type())
	}

	child := anc
	if marker == OprAnd {
		child.and = true
	}

	for i, arg := range b.Args {
		if err := a.walk(arg, ctx, child); err != nil {
			return err
		}
		if i < len(b.Args)-1 {
			ctx.add(Fragment{Type: marker})
		}
	}
	return nil
}

// columnOperand reports whether e is a level-0 reference to the scanned relation.
func columnOperand(e filter.Expression, ctx *Context) bool {
	v, ok := e.(*filter.VarExpression)
	return ok && v.RelIndex == ctx.ScanRelID && v.LevelsUp == 0
}

func (a *Analyzer) nullTest(n *filter.NullTestExpression, ctx *Context) bool {
	if n.ArgIsRow {
		return false
	}
	var typ OprType
	switch n.Type() {
	case filter.TypeIsNull:
		typ = OprIsNull
	case filter.TypeIsNotNull:
		typ = OprIsNotNull
	default:
		return false
	}
	if !columnOperand(n.Arg, ctx) {
		a.logger.Debug("pushdown: null test operand not supported",
			slog.String("relation", ctx.RelationName))
		return false
	}
	return a.accept(n, typ, ctx)
}

func (a *Analyzer) opExpr(o *filter.OpExpression, ctx *Context) bool {
	typ := MapOperator(a.ops, o.OperatorOID)
	if typ == OprNotSupported {
		a.logger.Debug("pushdown: operator not supported",
			slog.String("relation", ctx.RelationName),
			slog.Any("operator", o.OperatorOID))
		return false
	}
	for _, arg := range o.Args {
		if _, isConst := arg.(*filter.ConstExpression); isConst {
			continue
		}
		if !columnOperand(arg, ctx) {
			a.logger.Debug("pushdown: operand not supported",
				slog.String("relation", ctx.RelationName),
				slog.String("operator", typ.String()))
			return false
		}
	}
	return a.accept(o, typ, ctx)
}

// accept renders a copy of node in the single-relation frame and appends it.
func (a *Analyzer) accept(node filter.Expression, typ OprType, ctx *Context) bool {
	c := filter.Copy(node)
	filter.ChangeVarNodes(c, ctx.ScanRelID, 1, 0)
	text, err := a.deparse.Encode(c)
	if err != nil {
		a.logger.Debug("pushdown: cannot deparse predicate",
			slog.String("relation", ctx.RelationName),
			slog.String("error", err.Error()))
		return false
	}
	ctx.add(Fragment{Type: typ, Expr: node, Text: text})
	return true
}
