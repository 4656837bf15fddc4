// Package filter models host filter expression trees and renders them as
// Informix SQL.
//
// Trees arrive as JSON (for example in a Flight ticket) or are built with the
// constructors:
//
//	cat := catalog.NewStaticCatalog()
//	expr, err := filter.Parse(data, filter.WithOperators(cat))
//	if err != nil {
//	    return err // malformed JSON or unresolvable operator
//	}
//
// A tree node is one of:
//   - VarExpression: a column reference (range table index, attribute number, query level)
//   - ConstExpression: a typed literal decoded by the type's input function
//   - OpExpression: a catalog operator applied to its arguments
//   - NullTestExpression: IS NULL / IS NOT NULL
//   - BoolExpression: AND / OR / NOT
//   - FuncExpression, SubLinkExpression, ParamExpression: never rendered remotely
//   - UnsupportedExpression: a node of unknown class
//
// # Encoding
//
// The InformixEncoder renders a tree scoped to one relation. Column
// references must already point at range table index 1; use Copy and
// ChangeVarNodes to move them there without touching the original tree:
//
//	c := filter.Copy(expr)
//	filter.ChangeVarNodes(c, scanRelID, 1, 0)
//	enc := filter.NewInformixEncoder(filter.RelationFor(rel), cat, nil)
//	sql, err := enc.Encode(c)
//
// Encoding is all-or-nothing: an error wrapping ErrUnsupportedExpression is
// returned when any node of the tree has no remote rendering. Date and time
// constants use Informix literals by default; set LiteralANSI for remotes
// that speak standard SQL.
package filter
