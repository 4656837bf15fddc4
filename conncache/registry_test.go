package conncache

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/ifx"
	"github.com/hugr-lab/ifx-fdw/options"
)

func testInfo(t *testing.T, user string) *options.ConnectionInfo {
	t.Helper()
	info, err := options.Resolve(
		options.Options{"informixserver": "ol_informix1170", "driver": "duckdb", "dsn": ""},
		options.Options{"username": user},
		options.Options{"database": "regression", "table": "inttest"},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return info
}

type countingOpener struct {
	opened int
	err    error
}

func (o *countingOpener) open(ctx context.Context, info *options.ConnectionInfo) (*sql.DB, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.opened++
	return sql.Open("duckdb", "")
}

func TestAddCachesByConnectionName(t *testing.T) {
	r := New()
	defer r.Close()
	ctx := context.Background()
	opener := &countingOpener{}

	c1, usage, found, err := r.Add(ctx, 16384, testInfo(t, "informix"), opener.open)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if found || usage != 1 {
		t.Errorf("expected new connection with usage 1, got found=%v usage=%d", found, usage)
	}
	if c1.Name != "informix-regression-ol_informix1170" || c1.EstablishedBy != 16384 {
		t.Errorf("unexpected connection %+v", c1)
	}

	c2, usage, found, err := r.Add(ctx, 16385, testInfo(t, "informix"), opener.open)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !found || usage != 2 || c2 != c1 {
		t.Errorf("expected cached connection with usage 2, got found=%v usage=%d", found, usage)
	}
	if c2.EstablishedBy != 16384 {
		t.Errorf("establishing relation changed to %d", c2.EstablishedBy)
	}

	if _, _, _, err := r.Add(ctx, 16384, testInfo(t, "bernd"), opener.open); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if opener.opened != 2 {
		t.Errorf("expected 2 opened handles, got %d", opener.opened)
	}

	stats := r.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(stats))
	}
	if stats[0].Username != "bernd" || stats[1].Usage != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestAddOpenError(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	_, _, _, err := r.Add(context.Background(), 1, testInfo(t, "informix"), (&countingOpener{err: boom}).open)
	if !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
	if _, ok := r.Lookup("informix-regression-ol_informix1170"); ok {
		t.Error("failed connection was cached")
	}
}

func TestRemoveAndTransactions(t *testing.T) {
	r := New()
	defer r.Close()
	opener := &countingOpener{}
	c, _, _, err := r.Add(context.Background(), 1, testInfo(t, "informix"), opener.open)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	r.RecordTransaction(c.Name, true)
	r.RecordTransaction(c.Name, true)
	r.RecordTransaction(c.Name, false)
	r.RecordTransaction("unknown", true)

	s := r.Stats()[0]
	if s.TxCommits != 2 || s.TxRollbacks != 1 {
		t.Errorf("expected 2 commits and 1 rollback, got %d/%d", s.TxCommits, s.TxRollbacks)
	}

	removed, ok, err := r.Remove(c.Name)
	if err != nil || !ok || removed != c {
		t.Fatalf("Remove: ok=%v err=%v", ok, err)
	}
	if err := c.DB.Ping(); err == nil {
		t.Error("expected removed handle to be closed")
	}
	if _, ok, _ := r.Remove(c.Name); ok {
		t.Error("second Remove found the connection")
	}
}

func TestTableCache(t *testing.T) {
	r := New()
	if _, ok := r.Table(7); ok {
		t.Fatal("unexpected table entry")
	}

	r.AddTable(7, "conn-a")
	r.AddTable(7, "conn-b")
	attrs := []ifx.AttrDef{{Ordinal: 0, Name: "f1", Kind: ifx.KindInt8}}
	r.SetTableAttrs(7, attrs)
	attrs[0].Name = "changed"

	entry, ok := r.Table(7)
	if !ok {
		t.Fatal("expected table entry")
	}
	if entry.ConnName != "conn-a" {
		t.Errorf("expected first registration to win, got %q", entry.ConnName)
	}
	if len(entry.Attrs) != 1 || entry.Attrs[0].Name != "f1" {
		t.Errorf("unexpected attrs %+v", entry.Attrs)
	}

	entry.Attrs[0].Name = "mutated"
	if again, _ := r.Table(7); again.Attrs[0].Name != "f1" {
		t.Error("cache entry shared with caller")
	}

	r.SetTableAttrs(catalog.OID(99), attrs)
	if _, ok := r.Table(99); ok {
		t.Error("attrs registered an unknown table")
	}
}

func TestClose(t *testing.T) {
	r := New()
	opener := &countingOpener{}
	c, _, _, err := r.Add(context.Background(), 1, testInfo(t, "informix"), opener.open)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	r.AddTable(1, c.Name)

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(r.Stats()) != 0 {
		t.Error("expected empty registry after Close")
	}
	if _, ok := r.Table(1); ok {
		t.Error("expected table cache cleared")
	}
}

// blockingOpener holds every open until release is closed.
type blockingOpener struct {
	started chan struct{}
	release chan struct{}
	opened  atomic.Int32
}

func (o *blockingOpener) open(ctx context.Context, info *options.ConnectionInfo) (*sql.DB, error) {
	if o.opened.Add(1) == 1 {
		close(o.started)
	}
	select {
	case <-o.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return sql.Open("duckdb", "")
}

func TestAddDoesNotBlockOtherConnections(t *testing.T) {
	r := New()
	defer r.Close()
	ctx := context.Background()

	slow := &blockingOpener{started: make(chan struct{}), release: make(chan struct{})}
	slowInfo := testInfo(t, "slow")
	fastInfo := testInfo(t, "informix")

	type result struct {
		conn  *Connection
		usage int64
		err   error
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, usage, _, err := r.Add(ctx, 16384, slowInfo, slow.open)
			results <- result{c, usage, err}
		}()
	}
	<-slow.started

	done := make(chan error, 1)
	go func() {
		r.Lookup("informix-regression-ol_informix1170")
		r.Stats()
		r.RecordTransaction("unknown", true)
		_, _, found, err := r.Add(ctx, 16385, fastInfo, (&countingOpener{}).open)
		if err == nil && found {
			err = errors.New("fast connection reported as cached")
		}
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Add of another connection failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("registry blocked while another connection was opening")
	}

	close(slow.release)
	wg.Wait()
	close(results)

	var conns []*Connection
	usages := map[int64]bool{}
	for res := range results {
		if res.err != nil {
			t.Fatalf("Add of slow connection failed: %v", res.err)
		}
		conns = append(conns, res.conn)
		usages[res.usage] = true
	}
	if conns[0] != conns[1] {
		t.Error("concurrent Adds of one name returned different connections")
	}
	if !usages[1] || !usages[2] {
		t.Errorf("expected usages 1 and 2, got %v", usages)
	}
	if n := slow.opened.Load(); n != 1 {
		t.Errorf("expected the slow connection to be opened once, got %d", n)
	}
	if len(r.Stats()) != 2 {
		t.Errorf("expected 2 cached connections, got %d", len(r.Stats()))
	}
}
