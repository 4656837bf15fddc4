package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hugr-lab/ifx-fdw/catalog"
)

// ErrUnsupportedExpression is wrapped by every encoding error caused by a
// node that has no remote rendering.
var ErrUnsupportedExpression = errors.New("unsupported expression")

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedExpression, fmt.Sprintf(format, args...))
}

// Encoder converts filter expressions to remote SQL text.
type Encoder interface {
	// Encode converts a single expression to SQL. The error wraps
	// ErrUnsupportedExpression when some node cannot be rendered.
	Encode(expr Expression) (string, error)
}

// LiteralStyle selects how date and time constants are spelled.
type LiteralStyle string

const (
	// LiteralInformix renders MDY(m,d,y) and DATETIME(...) YEAR TO FRACTION(5).
	LiteralInformix LiteralStyle = "informix"
	// LiteralANSI renders DATE '...' and TIMESTAMP '...' typed literals.
	LiteralANSI LiteralStyle = "ansi"
)

// EncoderOptions configures encoding behavior.
type EncoderOptions struct {
	// ColumnMapping maps local column names to remote names.
	// Columns not in the map use their local names.
	ColumnMapping map[string]string

	// ColumnExpressions maps local column names to remote SQL expressions.
	// Takes precedence over ColumnMapping.
	ColumnExpressions map[string]string

	// LiteralStyle defaults to LiteralInformix.
	LiteralStyle LiteralStyle
}

// Relation is the single-relation frame expressions are encoded in.
// Column references must use range table index 1.
type Relation struct {
	Name string
	// Columns maps attribute numbers to column names.
	Columns map[int]string
}

// RelationFor builds the encoding frame of a foreign table.
func RelationFor(rel *catalog.Relation) *Relation {
	r := &Relation{Name: rel.Name, Columns: make(map[int]string, len(rel.Columns))}
	for _, c := range rel.LiveColumns() {
		r.Columns[c.AttNum] = c.Name
	}
	return r
}

// escapeString escapes single quotes in a string value for SQL.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// quoteLiteral returns a SQL string literal with proper escaping.
func quoteLiteral(s string) string {
	return "'" + escapeString(s) + "'"
}

// quoteIdentifier returns a quoted identifier if needed.
// Informix accepts double-quoted identifiers when DELIMIDENT is set.
func quoteIdentifier(name string) string {
	if needsQuoting(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

// needsQuoting returns true if the identifier needs quoting.
func needsQuoting(name string) bool {
	if len(name) == 0 {
		return true
	}

	// Check first character (must be a lower-case letter or underscore)
	c := name[0]
	if !isLower(c) && c != '_' {
		return true
	}

	for i := 1; i < len(name); i++ {
		c = name[i]
		if !isLower(c) && !isDigit(c) && c != '_' {
			return true
		}
	}

	// Check for reserved words (simplified list)
	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "TABLE", "INDEX",
		"JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "ON", "AS", "IN", "IS", "LIKE",
		"MATCHES", "BETWEEN", "EXISTS", "CASE", "WHEN", "THEN", "ELSE", "END",
		"ORDER", "BY", "GROUP", "HAVING", "UNION", "ALL", "DISTINCT", "VALUES",
		"SET", "INTO", "UNIQUE", "CHECK", "DEFAULT", "DATE", "DATETIME", "TODAY",
		"CURRENT", "USER", "FIRST", "SKIP", "LIMIT", "INTERVAL", "FRACTION":
		return true
	}

	return false
}

// isLower returns true if c is a lower-case ASCII letter. Unquoted upper-case
// identifiers are folded by the remote engine.
func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

// isDigit returns true if c is an ASCII digit.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
