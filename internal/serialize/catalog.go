// Package serialize compresses plan blobs and serializes the foreign table
// catalog to Arrow IPC for the list_tables Flight action.
package serialize

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/ifx-fdw/catalog"
)

// TablesSchema is the schema of the serialized table listing.
var TablesSchema = arrow.NewSchema([]arrow.Field{
	{Name: "table_name", Type: arrow.BinaryTypes.String},
	{Name: "server_name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "database", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "remote_source", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "column_count", Type: arrow.PrimitiveTypes.Int32},
}, nil)

func appendOptional(b *array.StringBuilder, v string) {
	if v == "" {
		b.AppendNull()
		return
	}
	b.Append(v)
}

// SerializeTables writes one row per foreign table to an Arrow IPC stream.
// remote_source is the table option, or the query option if no table is set.
func SerializeTables(ctx context.Context, cat catalog.RelationCatalog, allocator memory.Allocator) ([]byte, error) {
	rels, err := cat.Relations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}

	builder := array.NewRecordBuilder(allocator, TablesSchema)
	defer builder.Release()

	names := builder.Field(0).(*array.StringBuilder)
	servers := builder.Field(1).(*array.StringBuilder)
	databases := builder.Field(2).(*array.StringBuilder)
	sources := builder.Field(3).(*array.StringBuilder)
	counts := builder.Field(4).(*array.Int32Builder)

	for _, rel := range rels {
		names.Append(rel.Name)
		server := ""
		if rel.Server != nil {
			server = rel.Server.Name
		}
		appendOptional(servers, server)
		appendOptional(databases, rel.Options["database"])
		source := rel.Options["table"]
		if source == "" {
			source = rel.Options["query"]
		}
		appendOptional(sources, source)
		counts.Append(int32(len(rel.LiveColumns())))
	}

	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(TablesSchema), ipc.WithAllocator(allocator))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write IPC record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return buf.Bytes(), nil
}

// CompressTables serializes and compresses the table listing.
func CompressTables(ctx context.Context, cat catalog.RelationCatalog, allocator memory.Allocator) ([]byte, error) {
	data, err := SerializeTables(ctx, cat, allocator)
	if err != nil {
		return nil, err
	}
	return Compress(data)
}
