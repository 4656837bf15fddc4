package flight

import (
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/ifx-fdw/internal/msgpack"
	"github.com/hugr-lab/ifx-fdw/internal/recovery"
)

// PutResult is the MessagePack app metadata of the DoPut response.
type PutResult struct {
	Table        string `msgpack:"table"`
	Batches      int    `msgpack:"batches"`
	RowsInserted int64  `msgpack:"rows_inserted"`
}

// DoPut inserts a client record stream into a remote table.
//
// The descriptor of the first message names the foreign table, either as a
// one-element PATH or as an encoded ticket. Record fields are matched to the
// table's columns by name. Every record is inserted in its own remote
// transaction; the first failing record aborts the stream.
func (s *Server) DoPut(stream flight.FlightService_DoPutServer) error {
	return recovery.RecoverToError(s.logger, "DoPut", func() error {
		return s.doPut(stream)
	})
}

func (s *Server) doPut(stream flight.FlightService_DoPutServer) error {
	ctx := stream.Context()

	s.logger.Debug("DoPut called")

	msg, err := stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.logger.Warn("DoPut stream closed before receiving descriptor")
			return status.Error(codes.InvalidArgument, "no descriptor received")
		}
		s.logger.Error("Failed to receive DoPut message", "error", err)
		return status.Errorf(codes.Internal, "failed to receive message: %v", err)
	}
	if msg.FlightDescriptor == nil {
		return status.Error(codes.InvalidArgument, "missing flight descriptor")
	}

	t, err := ticketFromDescriptor(msg.FlightDescriptor)
	if err != nil {
		return statusError(err, "invalid descriptor")
	}
	rel, err := s.tables.Relation(ctx, t.Table)
	if err != nil {
		return statusError(err, "failed to resolve table")
	}

	reader, err := flight.NewRecordReader(newFlightDataReader(msg, stream), ipc.WithAllocator(s.allocator))
	if err != nil {
		s.logger.Error("Failed to create record reader", "error", err)
		return status.Errorf(codes.InvalidArgument, "failed to create reader: %v", err)
	}
	defer reader.Release()

	result := PutResult{Table: rel.Name}
	for reader.Next() {
		rec := reader.Record()
		n, err := s.writer.Insert(ctx, rel, rec)
		if err != nil {
			s.logger.Error("Insert failed",
				"table", rel.Name,
				"batch", result.Batches,
				"error", err,
			)
			return statusError(err, "insert into "+rel.Name+" failed")
		}
		result.Batches++
		result.RowsInserted += n
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Error("Error reading records", "error", err)
		return status.Errorf(codes.Internal, "error reading records: %v", err)
	}

	metadata, err := msgpack.Encode(&result)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode result: %v", err)
	}
	if err := stream.Send(&flight.PutResult{AppMetadata: metadata}); err != nil {
		s.logger.Error("Failed to send PutResult", "error", err)
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}

	s.logger.Debug("DoPut completed successfully",
		"table", rel.Name,
		"batches", result.Batches,
		"rows_inserted", result.RowsInserted,
	)
	return nil
}

// doPutDataStream replays the first message of a DoPut stream, which was
// consumed to read the descriptor, before the rest of the stream.
type doPutDataStream struct {
	firstMsg  *flight.FlightData
	stream    flight.FlightService_DoPutServer
	firstSent bool
}

func (s *doPutDataStream) Recv() (*flight.FlightData, error) {
	if !s.firstSent {
		s.firstSent = true
		return s.firstMsg, nil
	}
	return s.stream.Recv()
}

func newFlightDataReader(firstMsg *flight.FlightData, stream flight.FlightService_DoPutServer) flight.DataStreamReader {
	return &doPutDataStream{firstMsg: firstMsg, stream: stream}
}
