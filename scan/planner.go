package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hugr-lab/ifx-fdw/auth"
	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/conncache"
	"github.com/hugr-lab/ifx-fdw/filter"
	"github.com/hugr-lab/ifx-fdw/options"
	"github.com/hugr-lab/ifx-fdw/pushdown"
	"github.com/hugr-lab/ifx-fdw/remote"
)

// ErrNoServer is returned for a foreign table without a foreign server.
var ErrNoServer = errors.New("foreign table has no server")

// Catalog is the host type system a scan needs.
type Catalog interface {
	catalog.TypeCatalog
	catalog.OperatorCatalog
}

// Planner resolves foreign table scans into plans. It is safe for
// concurrent use.
type Planner struct {
	registry *conncache.Registry
	catalog  Catalog
	open     conncache.Opener
	logger   *slog.Logger
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithPlannerLogger sets the planner logger.
func WithPlannerLogger(logger *slog.Logger) PlannerOption {
	return func(p *Planner) { p.logger = logger }
}

// WithOpener replaces remote.Open for new connections.
func WithOpener(open conncache.Opener) PlannerOption {
	return func(p *Planner) { p.open = open }
}

// NewPlanner creates a Planner over a connection registry.
func NewPlanner(registry *conncache.Registry, cat Catalog, opts ...PlannerOption) *Planner {
	p := &Planner{
		registry: registry,
		catalog:  cat,
		open:     remote.Open,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve returns the connection info of rel for the user authenticated in
// ctx. Users without their own mapping use the public one.
func Resolve(ctx context.Context, rel *catalog.Relation) (*options.ConnectionInfo, string, error) {
	if rel.Server == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNoServer, rel.Name)
	}
	user := auth.IdentityFromContext(ctx)
	mapping, err := rel.Server.UserMapping(user)
	if err != nil {
		return nil, "", err
	}
	info, err := options.Resolve(rel.Server.Options, mapping, rel.Options)
	if err != nil {
		return nil, "", fmt.Errorf("foreign table %q: %w", rel.Name, err)
	}
	return info, user, nil
}

// Plan opens or reuses the remote connection of rel, analyzes the local
// filter clauses for pushdown and estimates the scan costs. scanRelID is the
// range table index column references of rel carry in quals.
func (p *Planner) Plan(ctx context.Context, rel *catalog.Relation, scanRelID int, quals []filter.Expression) (*Plan, error) {
	info, user, err := Resolve(ctx, rel)
	if err != nil {
		return nil, err
	}

	conn, usage, cached, err := p.registry.Add(ctx, rel.OID, info, p.open)
	if err != nil {
		return nil, err
	}
	p.registry.AddTable(rel.OID, conn.Name)

	encoder := filter.NewInformixEncoder(filter.RelationFor(rel), p.catalog, &filter.EncoderOptions{
		LiteralStyle: filter.LiteralStyle(info.LiteralStyle),
	})
	analyzer := pushdown.New(p.catalog, encoder, pushdown.WithLogger(p.logger))
	pctx := pushdown.NewContext(scanRelID, rel)
	if err := analyzer.AnalyzeClauses(quals, pctx); err != nil {
		return nil, fmt.Errorf("foreign table %q: %w", rel.Name, err)
	}

	scanID := fmt.Sprintf("%d", usage)
	plan := &Plan{
		ID:               uuid.NewString(),
		RelationOID:      rel.OID,
		RelationName:     rel.Name,
		ScanRelID:        scanRelID,
		User:             user,
		ConnName:         conn.Name,
		Driver:           info.Driver,
		Database:         info.DatabaseString(),
		StatementName:    info.StatementName(scanID),
		CursorName:       info.CursorName(scanID),
		BaseQuery:        info.RemoteQuery(),
		Exact:            pctx.Exact(),
		ConnectionCached: cached,
		ConnectionCosts:  info.ConnectionCosts,
		Rows:             info.EstimatedRows,
	}
	for _, f := range pctx.Fragments {
		plan.Fragments = append(plan.Fragments, f.SQL())
	}

	plan.Query = plan.BaseQuery
	// A user query may carry its own WHERE clause; only table scans get the
	// pushed-down condition appended.
	if where := pctx.WhereClause(); where != "" && info.Query == "" {
		plan.Query += " WHERE " + where
		plan.Pushed = true
	}

	plan.StartupCost = NewConnectionStartupCost
	if cached {
		plan.StartupCost = CachedConnectionStartupCost
	}
	plan.TotalCost = plan.StartupCost + plan.ConnectionCosts + plan.Rows*TupleCost

	p.logger.Debug("scan: planned foreign scan",
		slog.String("relation", rel.Name),
		slog.String("connection", conn.Name),
		slog.Bool("cached", cached),
		slog.Int("fragments", pctx.Count),
		slog.String("query", plan.Query))
	return plan, nil
}
