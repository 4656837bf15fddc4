// Package ifxfdw serves Informix foreign tables over Apache Arrow Flight.
//
// A foreign table maps a remote Informix table or query to local columns.
// Scans push the parts of the caller's filter the remote server can evaluate
// into the remote WHERE clause, fetch rows through a cursor and convert every
// value into the declared local column type before building Arrow records.
//
// # Quick Start
//
//	cat, err := ifxfdw.NewCatalogBuilder().
//	    Server(ifxfdw.ServerDef{
//	        Name:    "ifx",
//	        Options: map[string]string{"informixserver": "ol_informix1170", "driver": "informix"},
//	        UserMappings: map[string]map[string]string{
//	            "public": {"username": "informix", "password": "secret"},
//	        },
//	    }).
//	    Table(ifxfdw.ForeignTableDef{
//	        Name:   "inttest",
//	        Server: "ifx",
//	        Columns: []ifxfdw.ColumnDef{
//	            {Name: "f1", Type: "bigint"},
//	            {Name: "f2", Type: "varchar(20)"},
//	        },
//	        Options: map[string]string{"database": "regression", "table": "inttest"},
//	    }).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	config := ifxfdw.ServerConfig{Tables: cat}
//	grpcServer := grpc.NewServer(ifxfdw.ServerOptions(config)...)
//	registry, err := ifxfdw.NewServer(grpcServer, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer registry.Close()
//
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
//
// The remote database is reached through database/sql; the "driver" server
// option names the registered driver. Import the driver package in main.
//
// # Scans
//
// DoGet tickets carry the table name, an optional JSON filter (see package
// filter) and a batch size. The server plans the scan (package scan), keeps
// one remote connection per user, database and server (package conncache)
// and streams the converted rows. The pushed-down condition never filters
// more than the ticket's filter, but it may filter less: clients evaluate
// their filter on the returned rows.
//
// # Inserts
//
// DoPut streams records into the remote table of a foreign table defined by
// the table option. Record fields are matched to columns by name.
//
// # Authentication
//
// With an Authenticator in ServerConfig, every call must carry a bearer
// token. The authenticated identity selects the user mapping of the
// foreign server; users without a mapping use the public one.
package ifxfdw
