// Package conv implements the value conversion matrix between the remote
// Informix representations and local host values.
//
// The read path (ConvertFromRemote) is called once per column per fetched
// row and yields an Outcome; the write path (ConvertToRemote) stages a local
// value into a remote statement slot.
//
// Error classes:
//   - unsupported pairings are returned as the Invalid outcome (read path)
//     or an *IncompatibleTypeError (write path);
//   - SQL NULL is the Null outcome, never an error;
//   - type-system lookup failures, input function errors and panics are
//     returned as errors after the remote call stack was rewound.
package conv

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
	"github.com/hugr-lab/ifx-fdw/internal/recovery"
)

// RemoteReader is the statement handle used by the read path.
type RemoteReader interface {
	ifx.Fetcher
	ifx.Unwinder
}

// RemoteWriter is the statement handle used by the write path.
type RemoteWriter interface {
	ifx.Binder
	ifx.Unwinder
}

// Converter converts values of one open scan. It is not safe for concurrent
// use with the same statement handle.
type Converter struct {
	types   catalog.TypeCatalog
	columns []Column
	logger  *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used for conversion diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

// New creates a Converter for the given column array.
func New(types catalog.TypeCatalog, columns []Column, opts ...Option) *Converter {
	c := &Converter{
		types:   types,
		columns: columns,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Columns returns the column array.
func (c *Converter) Columns() []Column {
	return c.columns
}

func (c *Converter) resolve(stmt interface{ Attr(int) *ifx.AttrDef }, ordinal int) (*Column, *ifx.AttrDef, error) {
	if ordinal < 0 || ordinal >= len(c.columns) {
		return nil, nil, fmt.Errorf("%w: local ordinal %d", ErrNoSuchColumn, ordinal)
	}
	col := &c.columns[ordinal]
	attr := stmt.Attr(col.RemotePos)
	if attr == nil {
		return nil, nil, fmt.Errorf("%w: column %q has no remote attribute at position %d",
			ErrNoSuchColumn, col.Name, col.RemotePos)
	}
	return col, attr, nil
}

// ConvertFromRemote converts the current value of the remote attribute
// mapped to the local column at ordinal.
func (c *Converter) ConvertFromRemote(stmt RemoteReader, ordinal int) (out Outcome, err error) {
	col, attr, err := c.resolve(stmt, ordinal)
	if err != nil {
		return Outcome{}, err
	}
	if attr.IsNull() {
		return Null(), nil
	}

	scope := ifx.Enter(stmt)
	defer scope.Close(&err)

	out, err = recovery.RecoverToValue(c.logger, "convert column "+col.Name, func() (Outcome, error) {
		return c.fromRemote(stmt, col, attr)
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("column %q: %w", col.Name, err)
	}
	if out.IsInvalid() {
		attr.Valid = false
		c.logger.Debug("incompatible type pairing",
			"column", col.Name,
			"remote", attr.Kind.String(),
			"local", catalog.TypeName(col.TypeOID, col.Typmod))
	}
	return out, nil
}

func (c *Converter) fromRemote(stmt RemoteReader, col *Column, attr *ifx.AttrDef) (Outcome, error) {
	switch col.TypeOID {
	case catalog.DateOID:
		return c.readDate(stmt, col, attr)
	case catalog.TimestampOID, catalog.TimestampTZOID:
		return c.readTimestamp(stmt, col, attr)
	case catalog.NumericOID:
		return c.readDecimal(stmt, col, attr)
	case catalog.Int2OID:
		return c.readInt2(stmt, attr)
	case catalog.Int4OID:
		return c.readInt4(stmt, attr)
	case catalog.Int8OID:
		return c.readInteger(stmt, col, attr)
	case catalog.TextOID, catalog.VarcharOID, catalog.BPCharOID:
		switch k := attr.Kind; {
		case k.IsWideInteger(), k.IsNarrowInteger():
			return c.readInteger(stmt, col, attr)
		case k == ifx.KindBoolean:
			return c.readBool(stmt, col, attr)
		case k == ifx.KindDate:
			return c.readDate(stmt, col, attr)
		case k == ifx.KindDateTime:
			return c.readTimestamp(stmt, col, attr)
		}
		return c.readCharacter(stmt, col, attr)
	case catalog.ByteaOID:
		return c.readCharacter(stmt, col, attr)
	case catalog.BoolOID, catalog.CharOID:
		return c.readBool(stmt, col, attr)
	}
	return Invalid(), nil
}

// ConvertToRemote stages value for the remote attribute mapped to the local
// column at ordinal. The null indicator is always set first.
func (c *Converter) ConvertToRemote(stmt RemoteWriter, ordinal int, value any, isNull bool) (err error) {
	col, attr, err := c.resolve(stmt, ordinal)
	if err != nil {
		return err
	}
	if isNull {
		stmt.SetIndicator(col.RemotePos, ifx.IndicatorNull)
		return nil
	}
	stmt.SetIndicator(col.RemotePos, ifx.IndicatorNotNull)

	// An incompatible pairing stages nothing, so only other failures rewind.
	var fatal error
	scope := ifx.Enter(stmt)
	defer scope.Close(&fatal)

	_, err = recovery.RecoverToValue(c.logger, "stage column "+col.Name, func() (struct{}, error) {
		return struct{}{}, c.toRemote(stmt, col, attr, value)
	})
	var incompatible *IncompatibleTypeError
	if err == nil || errors.As(err, &incompatible) {
		return err
	}
	fatal = fmt.Errorf("column %q: %w", col.Name, err)
	return fatal
}
