package flight

import (
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/ifx-fdw/internal/recovery"
	"github.com/hugr-lab/ifx-fdw/scan"
)

// DoGet runs a foreign scan and streams its rows as Arrow records.
//
// The handler:
//  1. Decodes the ticket
//  2. Reuses the attached plan or plans the scan, pushing down what it can
//  3. Opens the remote cursor and converts fetched rows batch by batch
//  4. Streams the records, stopping on client cancellation
//
// The pushed-down condition may be weaker than the ticket's filter; clients
// apply their own filter to the returned rows.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	return recovery.RecoverToError(s.logger, "DoGet", func() error {
		return s.doGet(ticket, stream)
	})
}

func (s *Server) doGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := stream.Context()

	s.logger.Debug("DoGet called", "ticket_size", len(ticket.GetTicket()))

	t, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		s.logger.Error("Failed to decode ticket", "error", err)
		return statusError(err, "invalid ticket")
	}

	plan, _, err := s.planTicket(ctx, t)
	if err != nil {
		s.logger.Error("Failed to plan scan", "table", t.Table, "error", err)
		return statusError(err, "failed to plan scan of "+t.Table)
	}

	exec := scan.NewExecutor(s.registry, s.types, s.tables,
		scan.WithAllocator(s.allocator),
		scan.WithBatchSize(t.BatchSize),
		scan.WithExecutorLogger(s.logger),
	)
	if err := exec.Begin(ctx, plan); err != nil {
		s.logger.Error("Failed to begin scan",
			"table", t.Table,
			"query", plan.Query,
			"error", err,
		)
		return statusError(err, "failed to begin scan of "+t.Table)
	}
	defer recovery.Recover(s.logger, "close scan", func() {
		if err := exec.Close(); err != nil {
			s.logger.Warn("Failed to close scan", "table", t.Table, "error", err)
		}
	})

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(exec.Schema()), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	batchCount := 0
	totalRows := int64(0)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("DoGet cancelled by client",
				"table", t.Table,
				"batches_sent", batchCount,
				"rows_sent", totalRows,
			)
			return status.Error(codes.Canceled, "request cancelled")
		default:
		}

		rec, err := exec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Error("Scan failed",
				"table", t.Table,
				"batch", batchCount,
				"error", err,
			)
			return statusError(err, "scan error")
		}

		batchCount++
		totalRows += rec.NumRows()
		err = writer.Write(rec)
		rec.Release()
		if err != nil {
			s.logger.Error("Failed to write record batch",
				"table", t.Table,
				"batch", batchCount,
				"error", err,
			)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", batchCount, err)
		}
	}

	s.logger.Debug("DoGet completed successfully",
		"table", t.Table,
		"pushed", plan.Pushed,
		"batches_sent", batchCount,
		"total_rows", totalRows,
	)
	return nil
}
