// Package conncache keeps remote connections and foreign table metadata for
// the lifetime of the process.
//
// The Registry is an explicit object passed to the components that need it.
// Connections are keyed by their connection name ("user-database-server"),
// table metadata by the foreign table's OID.
package conncache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
	"github.com/hugr-lab/ifx-fdw/options"
)

// Opener opens the database handle of a new connection.
type Opener func(ctx context.Context, info *options.ConnectionInfo) (*sql.DB, error)

// Connection is a cached remote connection.
type Connection struct {
	Name          string
	EstablishedBy catalog.OID
	ServerName    string
	InformixDir   string
	Database      string
	Username      string
	ClientLocale  string
	DBLocale      string
	DB            *sql.DB

	usage       int64
	txCommits   int64
	txRollbacks int64
}

// Stats is a snapshot of a cached connection.
type Stats struct {
	Name            string      `json:"name" msgpack:"name"`
	EstablishedBy   catalog.OID `json:"established_by" msgpack:"established_by"`
	ServerName      string      `json:"server" msgpack:"server"`
	Database        string      `json:"database" msgpack:"database"`
	Username        string      `json:"user" msgpack:"user"`
	Usage           int64       `json:"usage" msgpack:"usage"`
	TxCommits       int64       `json:"tx_commits" msgpack:"tx_commits"`
	TxRollbacks     int64       `json:"tx_rollbacks" msgpack:"tx_rollbacks"`
	OpenConnections int         `json:"open_connections" msgpack:"open_connections"`
	InUse           int         `json:"in_use" msgpack:"in_use"`
}

// TableEntry caches metadata of a foreign table.
type TableEntry struct {
	RelationOID catalog.OID
	ConnName    string
	// Attrs are the remote attributes described for the table's query.
	Attrs []ifx.AttrDef
}

// Registry is the process-wide connection and table cache.
type Registry struct {
	dials  singleflight.Group
	mu     sync.Mutex
	conns  map[string]*Connection
	tables map[catalog.OID]*TableEntry
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		conns:  make(map[string]*Connection),
		tables: make(map[catalog.OID]*TableEntry),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add returns the cached connection for info, opening it with open if it is
// not cached yet. found reports whether the connection was already cached;
// in that case its usage counter is incremented. The usage value returned
// identifies the calling scan among all scans on the connection.
//
// The registry is not locked while a connection is opened. Concurrent Adds
// for the same name share one open; the caller that opened it gets
// found == false.
func (r *Registry) Add(ctx context.Context, relOID catalog.OID, info *options.ConnectionInfo, open Opener) (conn *Connection, usage int64, found bool, err error) {
	name := info.ConnName()

	r.mu.Lock()
	if c, ok := r.conns[name]; ok {
		c.usage++
		usage = c.usage
		r.mu.Unlock()
		return c, usage, true, nil
	}
	r.mu.Unlock()

	opened := false
	v, err, _ := r.dials.Do(name, func() (any, error) {
		db, err := open(ctx, info)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", info.DatabaseString(), err)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.conns[name]; ok {
			db.Close()
			return c, nil
		}
		c := &Connection{
			Name:          name,
			EstablishedBy: relOID,
			ServerName:    info.ServerName,
			InformixDir:   info.InformixDir,
			Database:      info.Database,
			Username:      info.Username,
			ClientLocale:  info.ClientLocale,
			DBLocale:      info.DBLocale,
			DB:            db,
			usage:         1,
		}
		r.conns[name] = c
		opened, usage = true, 1
		r.logger.Debug("conncache: new connection",
			slog.String("name", name),
			slog.Any("relation", relOID))
		return c, nil
	})
	if err != nil {
		return nil, 0, false, err
	}
	c := v.(*Connection)
	if opened {
		return c, usage, false, nil
	}

	r.mu.Lock()
	c.usage++
	usage = c.usage
	r.mu.Unlock()
	return c, usage, true, nil
}

// Lookup returns a cached connection.
func (r *Registry) Lookup(name string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[name]
	return c, ok
}

// Remove drops a connection from the cache and closes its handle.
func (r *Registry) Remove(name string) (*Connection, bool, error) {
	r.mu.Lock()
	c, ok := r.conns[name]
	delete(r.conns, name)
	r.mu.Unlock()

	if !ok {
		return nil, false, nil
	}
	return c, true, c.DB.Close()
}

// RecordTransaction counts a finished remote transaction.
func (r *Registry) RecordTransaction(name string, committed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[name]
	if !ok {
		return
	}
	if committed {
		c.txCommits++
	} else {
		c.txRollbacks++
	}
}

// Stats returns a snapshot of all cached connections ordered by name.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Stats, 0, len(r.conns))
	for _, c := range r.conns {
		dbStats := c.DB.Stats()
		out = append(out, Stats{
			Name:            c.Name,
			EstablishedBy:   c.EstablishedBy,
			ServerName:      c.ServerName,
			Database:        c.Database,
			Username:        c.Username,
			Usage:           c.usage,
			TxCommits:       c.txCommits,
			TxRollbacks:     c.txRollbacks,
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddTable registers a foreign table with the connection it uses. An
// existing entry is kept.
func (r *Registry) AddTable(relOID catalog.OID, connName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[relOID]; !ok {
		r.tables[relOID] = &TableEntry{RelationOID: relOID, ConnName: connName}
	}
}

// Table returns a copy of the cache entry of a foreign table.
func (r *Registry) Table(relOID catalog.OID) (TableEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[relOID]
	if !ok {
		return TableEntry{}, false
	}
	out := *t
	out.Attrs = append([]ifx.AttrDef(nil), t.Attrs...)
	return out, true
}

// SetTableAttrs stores the described remote attributes of a foreign table.
func (r *Registry) SetTableAttrs(relOID catalog.OID, attrs []ifx.AttrDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[relOID]; ok {
		t.Attrs = append([]ifx.AttrDef(nil), attrs...)
	}
}

// Close closes every cached connection and empties the cache.
func (r *Registry) Close() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Connection)
	r.tables = make(map[catalog.OID]*TableEntry)
	r.mu.Unlock()

	var errs []error
	for name, c := range conns {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
