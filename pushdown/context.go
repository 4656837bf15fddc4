package pushdown

import (
	"strings"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/filter"
)

// Fragment is one entry of the pushdown list: either an accepted leaf
// predicate with its rendered remote text, or a connective marker.
type Fragment struct {
	Type OprType
	// Expr is the originating node, nil for connective markers.
	Expr filter.Expression
	// Text is the rendered remote predicate, empty for connective markers.
	Text string
}

// SQL returns the fragment's text, or the keyword of a connective marker.
func (f Fragment) SQL() string {
	if f.Type.IsConnective() {
		return f.Type.String()
	}
	return f.Text
}

// Context carries the target relation identity and collects the fragments
// produced by Analyze.
type Context struct {
	// ScanRelID is the range table index of the foreign relation in the
	// query being planned.
	ScanRelID    int
	RelationOID  catalog.OID
	RelationName string

	Fragments []Fragment
	Count     int

	// inexact is set when a leaf was dropped or an OR was nested below AND.
	inexact bool
	// negated is set when a NOT connective was seen.
	negated bool
}

// NewContext creates an empty context for the relation at scanRelID.
func NewContext(scanRelID int, rel *catalog.Relation) *Context {
	return &Context{
		ScanRelID:    scanRelID,
		RelationOID:  rel.OID,
		RelationName: rel.Name,
	}
}

func (c *Context) add(f Fragment) {
	c.Fragments = append(c.Fragments, f)
	c.Count++
}

// Exact reports whether no leaf was dropped, no NOT was seen and no OR is
// nested below an AND. Joining the fragments of an exact list in order
// yields a predicate equivalent to the analyzed filter.
func (c *Context) Exact() bool {
	return !c.inexact && !c.negated
}

// Leaves returns the accepted leaf fragments in order.
func (c *Context) Leaves() []Fragment {
	var out []Fragment
	for _, f := range c.Fragments {
		if !f.Type.IsConnective() {
			out = append(out, f)
		}
	}
	return out
}

// WhereClause builds an advisory remote WHERE condition from the fragments.
// It is a relaxation of the analyzed filter, never a substitute for it: the
// local engine evaluates the full filter on every returned row.
//
// Lists whose only connective is AND reduce to the conjunction of their
// leaves. Other lists are used only when Exact. Everything else yields "".
func (c *Context) WhereClause() string {
	if c.negated {
		return ""
	}
	andOnly := true
	for _, f := range c.Fragments {
		if f.Type.IsConnective() && f.Type != OprAnd {
			andOnly = false
			break
		}
	}
	if andOnly {
		leaves := c.Leaves()
		parts := make([]string, len(leaves))
		for i, f := range leaves {
			parts[i] = f.Text
		}
		return strings.Join(parts, " AND ")
	}
	if c.inexact {
		return ""
	}
	parts := make([]string, len(c.Fragments))
	for i, f := range c.Fragments {
		parts[i] = f.SQL()
	}
	return strings.Join(parts, " ")
}
