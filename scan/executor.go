package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/conncache"
	"github.com/hugr-lab/ifx-fdw/conv"
	"github.com/hugr-lab/ifx-fdw/remote"
)

// DefaultBatchSize is the number of rows per Arrow record.
const DefaultBatchSize = 1024

var (
	// ErrNotStarted is returned by Next before Begin.
	ErrNotStarted = errors.New("scan not started")
	// ErrConnectionGone is returned when the plan's connection is no longer
	// cached.
	ErrConnectionGone = errors.New("connection not cached")
)

// Executor runs one planned foreign scan.
type Executor struct {
	registry  *conncache.Registry
	types     catalog.TypeCatalog
	relations catalog.RelationCatalog
	allocator memory.Allocator
	batchSize int
	logger    *slog.Logger

	plan    *Plan
	rel     *catalog.Relation
	schema  *arrow.Schema
	cursor  *remote.Cursor
	conv    *conv.Converter
	builder *array.RecordBuilder
	done    bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithAllocator sets the Arrow allocator records are built with.
func WithAllocator(alloc memory.Allocator) ExecutorOption {
	return func(e *Executor) { e.allocator = alloc }
}

// WithBatchSize sets the maximum rows per record. Values < 1 are ignored.
func WithBatchSize(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor creates an executor. Call Begin to start the scan.
func NewExecutor(registry *conncache.Registry, types catalog.TypeCatalog, relations catalog.RelationCatalog, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:  registry,
		types:     types,
		relations: relations,
		allocator: memory.DefaultAllocator,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the Arrow schema of the records, nil before Begin.
func (e *Executor) Schema() *arrow.Schema {
	return e.schema
}

// Begin prepares the plan's query on its cached connection, opens the
// cursor and maps the local columns to the described remote attributes.
func (e *Executor) Begin(ctx context.Context, plan *Plan) error {
	rel, err := e.relations.Relation(ctx, plan.RelationName)
	if err != nil {
		return err
	}
	if rel.OID != plan.RelationOID {
		return fmt.Errorf("%w: %s changed since planning", catalog.ErrRelationNotFound, plan.RelationName)
	}
	conn, ok := e.registry.Lookup(plan.ConnName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionGone, plan.ConnName)
	}
	schema, err := rel.ArrowSchema()
	if err != nil {
		return err
	}

	cursor, err := remote.Prepare(ctx, conn.DB, plan.StatementName, plan.Query, remote.WithLogger(e.logger))
	if err != nil {
		return err
	}
	if err := cursor.Open(ctx); err != nil {
		cursor.Close()
		return err
	}
	columns := conv.ColumnsFor(rel)
	if attrs := cursor.Attrs(); len(attrs) < len(columns) {
		cursor.Close()
		return fmt.Errorf("%w: foreign table %q has %d columns, remote query returns %d",
			conv.ErrNoSuchColumn, rel.Name, len(columns), len(attrs))
	}
	e.registry.SetTableAttrs(rel.OID, cursor.Attrs())

	e.plan = plan
	e.rel = rel
	e.schema = schema
	e.cursor = cursor
	e.conv = conv.New(e.types, columns, conv.WithLogger(e.logger))
	e.builder = array.NewRecordBuilder(e.allocator, schema)
	e.done = false
	return nil
}

// Next returns the next record of at most the batch size rows. It returns
// io.EOF after the last record. The caller must release the record.
func (e *Executor) Next() (arrow.Record, error) {
	if e.cursor == nil {
		return nil, ErrNotStarted
	}
	if e.done {
		return nil, io.EOF
	}
	for n := 0; n < e.batchSize; n++ {
		err := e.cursor.Fetch()
		if errors.Is(err, remote.ErrNoData) {
			e.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		if err := e.appendRow(); err != nil {
			return nil, err
		}
	}
	rec := e.builder.NewRecord()
	if rec.NumRows() == 0 {
		rec.Release()
		return nil, io.EOF
	}
	return rec, nil
}

func (e *Executor) appendRow() error {
	area := e.cursor.Area()
	for i, col := range e.conv.Columns() {
		out, err := e.conv.ConvertFromRemote(area, i)
		if err != nil {
			return err
		}
		field := e.builder.Field(i)
		switch out.Status {
		case conv.StatusNull:
			field.AppendNull()
		case conv.StatusInvalid:
			return &conv.IncompatibleTypeError{
				Column: col.Name,
				Local:  col.TypeOID,
				Typmod: col.Typmod,
				Remote: area.Attr(col.RemotePos).Kind,
			}
		default:
			if err := appendValue(field, out.Value); err != nil {
				return fmt.Errorf("column %q: %w", col.Name, err)
			}
		}
	}
	return nil
}

// Close closes the remote cursor and releases the record builder.
func (e *Executor) Close() error {
	var err error
	if e.cursor != nil {
		err = e.cursor.Close()
		e.logger.Debug("scan: finished foreign scan",
			slog.String("relation", e.plan.RelationName),
			slog.Int64("rows", e.cursor.Fetched()))
		e.cursor = nil
	}
	if e.builder != nil {
		e.builder.Release()
		e.builder = nil
	}
	return err
}
