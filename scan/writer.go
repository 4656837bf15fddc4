package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/conncache"
	"github.com/hugr-lab/ifx-fdw/conv"
	"github.com/hugr-lab/ifx-fdw/ifx"
	"github.com/hugr-lab/ifx-fdw/remote"
)

// ErrReadOnly is returned when inserting into a foreign table defined by a
// query.
var ErrReadOnly = errors.New("foreign table is read-only")

// Writer inserts Arrow records into remote tables.
type Writer struct {
	registry *conncache.Registry
	types    catalog.TypeCatalog
	open     conncache.Opener
	logger   *slog.Logger
}

// NewWriter creates a Writer. open may be nil to use remote.Open.
func NewWriter(registry *conncache.Registry, types catalog.TypeCatalog, open conncache.Opener, logger *slog.Logger) *Writer {
	if open == nil {
		open = remote.Open
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{registry: registry, types: types, open: open, logger: logger}
}

// Insert writes every row of rec into the remote table of rel in one remote
// transaction. Record fields are matched to the table's columns by name;
// columns missing from the record are left to the remote defaults.
func (w *Writer) Insert(ctx context.Context, rel *catalog.Relation, rec arrow.Record) (n int64, err error) {
	info, _, err := Resolve(ctx, rel)
	if err != nil {
		return 0, err
	}
	if info.Table == "" {
		return 0, fmt.Errorf("%w: %s is defined by a query", ErrReadOnly, rel.Name)
	}
	conn, _, _, err := w.registry.Add(ctx, rel.OID, info, w.open)
	if err != nil {
		return 0, err
	}
	w.registry.AddTable(rel.OID, conn.Name)

	remoteAttrs, err := w.describe(ctx, rel, conn, info.RemoteQuery())
	if err != nil {
		return 0, err
	}

	live := rel.LiveColumns()
	byName := make(map[string]int, len(live))
	for i, c := range live {
		byName[c.Name] = i
	}

	fields := rec.Schema().Fields()
	attrs := make([]ifx.AttrDef, len(fields))
	columns := make([]conv.Column, len(fields))
	for j, f := range fields {
		i, ok := byName[f.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %q in foreign table %q", conv.ErrNoSuchColumn, f.Name, rel.Name)
		}
		if i >= len(remoteAttrs) {
			return 0, fmt.Errorf("%w: column %q has no remote attribute", conv.ErrNoSuchColumn, f.Name)
		}
		attrs[j] = remoteAttrs[i]
		columns[j] = conv.Column{
			AttNum:    live[i].AttNum,
			Name:      live[i].Name,
			TypeOID:   live[i].TypeOID,
			Typmod:    live[i].Typmod,
			NotNull:   live[i].NotNull,
			RemotePos: j,
		}
	}

	ins, err := remote.NewInserter(ctx, conn.DB, info.Driver, conn.Name, info.Table, attrs, w.registry)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			ins.Rollback()
		}
	}()

	c := conv.New(w.types, columns, conv.WithLogger(w.logger))
	area := ins.Area()
	for row := 0; row < int(rec.NumRows()); row++ {
		for j, col := range columns {
			v, isNull, err := arrayValue(rec.Column(j), row, col.TypeOID)
			if err != nil {
				return 0, fmt.Errorf("row %d column %q: %w", row, col.Name, err)
			}
			if isNull && col.NotNull {
				return 0, fmt.Errorf("row %d: null value in column %q violates not-null constraint", row, col.Name)
			}
			if err := c.ConvertToRemote(area, j, v, isNull); err != nil {
				return 0, fmt.Errorf("row %d: %w", row, err)
			}
		}
		if err := ins.Exec(ctx); err != nil {
			return 0, fmt.Errorf("row %d: %w", row, err)
		}
	}
	if err := ins.Commit(); err != nil {
		return 0, err
	}
	w.logger.Debug("scan: inserted rows",
		slog.String("relation", rel.Name),
		slog.Int64("rows", ins.Inserted()))
	return ins.Inserted(), nil
}

func (w *Writer) describe(ctx context.Context, rel *catalog.Relation, conn *conncache.Connection, query string) ([]ifx.AttrDef, error) {
	if entry, ok := w.registry.Table(rel.OID); ok && len(entry.Attrs) > 0 {
		return entry.Attrs, nil
	}
	attrs, err := remote.DescribeQuery(ctx, conn.DB, query)
	if err != nil {
		return nil, err
	}
	w.registry.SetTableAttrs(rel.OID, attrs)
	return attrs, nil
}
