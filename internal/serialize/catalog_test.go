package serialize

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/ifx-fdw/catalog"
)

func testCatalog() *catalog.StaticCatalog {
	server := &catalog.ForeignServer{OID: 1, Name: "ifx", Options: map[string]string{"informixserver": "ol_informix1170"}}
	return catalog.NewStaticCatalog(catalog.WithRelations(
		&catalog.Relation{
			OID: 16384, Name: "inttest", Server: server,
			Columns: []catalog.Column{
				{AttNum: 1, Name: "f1", TypeOID: catalog.Int8OID, Typmod: -1},
				{AttNum: 2, Name: "gone", TypeOID: catalog.Int4OID, Typmod: -1, Dropped: true},
			},
			Options: map[string]string{"database": "regression", "table": "inttest"},
		},
		&catalog.Relation{
			OID: 16385, Name: "summary", Server: server,
			Columns: []catalog.Column{{AttNum: 1, Name: "n", TypeOID: catalog.Int8OID, Typmod: -1}},
			Options: map[string]string{"database": "regression", "query": "SELECT count(*) AS n FROM inttest"},
		},
	))
}

func TestSerializeTables(t *testing.T) {
	allocator := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer allocator.AssertSize(t, 0)

	data, err := SerializeTables(context.Background(), testCatalog(), allocator)
	if err != nil {
		t.Fatalf("SerializeTables failed: %v", err)
	}

	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(allocator))
	if err != nil {
		t.Fatalf("failed to read IPC: %v", err)
	}
	defer reader.Release()

	if !reader.Next() {
		t.Fatal("expected a record")
	}
	rec := reader.Record()
	if rec.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", rec.NumRows())
	}

	names := rec.Column(0).(*array.String)
	sources := rec.Column(3).(*array.String)
	counts := rec.Column(4).(*array.Int32)
	for i := 0; i < int(rec.NumRows()); i++ {
		switch names.Value(i) {
		case "inttest":
			if sources.Value(i) != "inttest" || counts.Value(i) != 1 {
				t.Errorf("unexpected inttest row: source %q, columns %d", sources.Value(i), counts.Value(i))
			}
		case "summary":
			if sources.Value(i) != "SELECT count(*) AS n FROM inttest" {
				t.Errorf("unexpected summary source %q", sources.Value(i))
			}
		default:
			t.Errorf("unexpected table %q", names.Value(i))
		}
	}
}

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("informix "), 100)
	compressed, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("expected compression, got %d >= %d bytes", len(compressed), len(data))
	}
	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("round trip changed the data")
	}

	if _, err := Decompress([]byte("not zstd")); err == nil {
		t.Error("expected error for invalid input")
	}
	if out, err := Compress(nil); err != nil || len(out) != 0 {
		t.Errorf("expected empty output, got %v %v", out, err)
	}
}
