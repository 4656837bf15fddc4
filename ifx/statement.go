package ifx

import "errors"

var (
	// ErrKindMismatch is returned by setters called for an attribute of a
	// different remote kind.
	ErrKindMismatch = errors.New("remote kind mismatch")

	// ErrNoSuchAttr is returned for positions outside the descriptor area.
	ErrNoSuchAttr = errors.New("no such remote attribute")
)

// Indicator is the per-value null flag reported by the remote client.
type Indicator int16

const (
	IndicatorNotNull Indicator = 0
	IndicatorNull    Indicator = -1
)

// AttrDef describes one column of a prepared remote statement.
type AttrDef struct {
	// Ordinal is the 0-based position in the descriptor area.
	Ordinal int
	Name    string
	Kind    Kind
	// TypeName is the type name as described by the remote engine.
	TypeName string
	// Length is the declared length for character kinds, 0 otherwise.
	Length int
	// Valid is cleared when the current value could not be converted.
	Valid     bool
	Indicator Indicator
}

// IsNull reports whether the current value is SQL NULL.
func (a *AttrDef) IsNull() bool {
	return a.Indicator == IndicatorNull
}

// Fetcher reads values of the current row. Accessors return ok == false when
// the value is NULL or cannot be represented in the requested form.
//
// Buffer-taking accessors format the value into buf and return the number of
// bytes written; they never retain buf. When the formatted value does not fit,
// they return ok == false and the length buf would need.
type Fetcher interface {
	NumAttrs() int
	Attr(pos int) *AttrDef

	Int2(pos int) (int16, bool)
	Int4(pos int) (int32, bool)
	Int8AsString(pos int, buf []byte) (int, bool)
	BigIntAsString(pos int, buf []byte) (int, bool)
	DecimalAsString(pos int, buf []byte) (int, bool)
	DateAsString(pos int, buf []byte) (int, bool)
	DateTimeAsString(pos int, buf []byte) (int, bool)
	Text(pos int) (string, bool)
	// LocatorBytes returns the large-object buffer of the current row.
	// The slice is only valid until the next fetch or rewind.
	LocatorBytes(pos int) ([]byte, bool)
	Bool(pos int) (bool, bool)
}

// Binder stages values for a remote statement execution.
type Binder interface {
	NumAttrs() int
	Attr(pos int) *AttrDef

	SetIndicator(pos int, ind Indicator)
	SetInt2(pos int, v int16) error
	SetInteger(pos int, v int32) error
	SetInt8(pos int, text string) error
	SetBigInt(pos int, text string) error
	SetDecimal(pos int, text string) error
	SetDate(pos int, text string) error
	SetDateTime(pos int, text string) error
	SetText(pos int, text string) error
	SetBytes(pos int, b []byte) error
	SetBool(pos int, v bool) error
}

// Unwinder releases resources held by the remote client call stack.
type Unwinder interface {
	RewindCallstack()
}

// Statement is the per-scan statement/cursor handle.
type Statement interface {
	Fetcher
	Binder
	Unwinder
}
