package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/ifx-fdw/ifx"
)

// Cursor is the remote statement and cursor of one scan.
type Cursor struct {
	Name  string
	Query string

	db     *sql.DB
	stmt   *sql.Stmt
	rows   *sql.Rows
	area   *ifx.DescriptorArea
	values []any
	dest   []any
	row    []any

	areaOpts []ifx.AreaOption
	logger   *slog.Logger
	fetched  int64
}

// CursorOption configures a Cursor.
type CursorOption func(*Cursor)

// WithLogger sets the cursor logger.
func WithLogger(logger *slog.Logger) CursorOption {
	return func(c *Cursor) { c.logger = logger }
}

// WithAreaOptions passes options to the descriptor area allocated on Open.
func WithAreaOptions(opts ...ifx.AreaOption) CursorOption {
	return func(c *Cursor) { c.areaOpts = append(c.areaOpts, opts...) }
}

// Prepare prepares query on db. name identifies the statement in logs; the
// cursor is named name + "_cur".
func Prepare(ctx context.Context, db *sql.DB, name, query string, opts ...CursorOption) (*Cursor, error) {
	c := &Cursor{
		Name:   name,
		Query:  query,
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", name, err)
	}
	c.stmt = stmt
	c.logger.Debug("remote: prepared statement", "statement", name, "query", query)
	return c, nil
}

// Open declares and opens the cursor and describes its result columns.
func (c *Cursor) Open(ctx context.Context, args ...any) error {
	if c.stmt == nil {
		return ErrClosed
	}
	rows, err := c.stmt.QueryContext(ctx, args...)
	if err != nil {
		return fmt.Errorf("open cursor %s_cur: %w", c.Name, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return fmt.Errorf("describe %s: %w", c.Name, err)
	}
	attrs, err := Describe(types)
	if err != nil {
		rows.Close()
		return err
	}

	c.rows = rows
	c.area = ifx.NewDescriptorArea(attrs, c.areaOpts...)
	c.values = make([]any, len(attrs))
	c.dest = make([]any, len(attrs))
	c.row = make([]any, len(attrs))
	for i := range c.values {
		c.dest[i] = &c.values[i]
	}
	c.logger.Debug("remote: opened cursor", "cursor", c.Name+"_cur", "attributes", len(attrs))
	return nil
}

// Area returns the descriptor area holding the current row.
func (c *Cursor) Area() *ifx.DescriptorArea {
	return c.area
}

// Attrs returns the described remote attributes.
func (c *Cursor) Attrs() []ifx.AttrDef {
	if c.area == nil {
		return nil
	}
	return c.area.Attrs()
}

// Fetched returns the number of rows fetched so far.
func (c *Cursor) Fetched() int64 {
	return c.fetched
}

// Fetch loads the next row into the descriptor area. It returns ErrNoData
// when the cursor is exhausted.
func (c *Cursor) Fetch() error {
	if c.rows == nil {
		return ErrClosed
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return fmt.Errorf("fetch %s_cur: %w", c.Name, err)
		}
		return ErrNoData
	}
	if err := c.rows.Scan(c.dest...); err != nil {
		return fmt.Errorf("fetch %s_cur: %w", c.Name, err)
	}
	copy(c.row, c.values)
	if err := c.area.Load(c.row); err != nil {
		return fmt.Errorf("fetch %s_cur: %w", c.Name, err)
	}
	c.fetched++
	return nil
}

// Close closes the cursor and frees the prepared statement.
func (c *Cursor) Close() error {
	var err error
	if c.rows != nil {
		err = c.rows.Close()
		c.rows = nil
	}
	if c.stmt != nil {
		if cerr := c.stmt.Close(); err == nil {
			err = cerr
		}
		c.stmt = nil
	}
	c.logger.Debug("remote: closed cursor", "cursor", c.Name+"_cur", "rows", c.fetched)
	return err
}
