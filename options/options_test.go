package options

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		opts Options
		is   error
	}{
		{"server ok", ServerContext, Options{"informixserver": "ol_informix1170", "driver": "duckdb"}, nil},
		{"user mapping ok", UserMappingContext, Options{"username": "informix", "password": "secret"}, nil},
		{"table ok", TableContext, Options{"database": "test", "table": "inttest"}, nil},
		{"unknown option", TableContext, Options{"database": "test", "schema": "x"}, ErrInvalidOption},
		{"server option on table", TableContext, Options{"informixserver": "x"}, ErrInvalidOption},
		{"query and table", TableContext, Options{"query": "SELECT 1", "table": "t"}, ErrConflictingOptions},
		{"user and username", UserMappingContext, Options{"user": "a", "username": "b"}, ErrConflictingOptions},
		{"bad literal style", ServerContext, Options{"literal_style": "oracle"}, ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ctx, tt.opts)
			if tt.is == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestInvalidOptionHint(t *testing.T) {
	err := Validate(UserMappingContext, Options{"role": "admin"})
	var ioe *InvalidOptionError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected *InvalidOptionError, got %v", err)
	}
	want := `invalid option "role" (valid options in this context are: username,user,password)`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestResolve(t *testing.T) {
	info, err := Resolve(
		Options{"informixserver": "ol_informix1170", "informixdir": "/opt/IBM/informix", "client_locale": "en_US.utf8"},
		Options{"user": "informix", "password": "informix"},
		Options{"database": "regression", "table": "inttest", "estimated_rows": "250.5"},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if info.Username != "informix" {
		t.Errorf("expected user alias to set username, got %q", info.Username)
	}
	if info.EstimatedRows != 250.5 {
		t.Errorf("expected estimated rows 250.5, got %g", info.EstimatedRows)
	}
	if info.ConnectionCosts != DefaultConnectionCosts {
		t.Errorf("expected default connection costs, got %g", info.ConnectionCosts)
	}
	if info.Driver != DefaultDriver || info.LiteralStyle != DefaultLiteralStyle {
		t.Errorf("unexpected defaults %q %q", info.Driver, info.LiteralStyle)
	}

	checks := []struct{ got, want string }{
		{info.ConnName(), "informix-regression-ol_informix1170"},
		{info.DatabaseString(), "regression@ol_informix1170"},
		{info.DataSourceName(), "regression@ol_informix1170"},
		{info.StatementName("42"), "informix-regression-ol_informix1170_42"},
		{info.CursorName("42"), "informix-regression-ol_informix1170_42_cur"},
		{info.RemoteQuery(), "SELECT * FROM inttest"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("expected %q, got %q", c.want, c.got)
		}
	}

	env := info.Environment()
	if env["INFORMIXDIR"] != "/opt/IBM/informix" || env["CLIENT_LOCALE"] != "en_US.utf8" || env["INFORMIXSERVER"] != "ol_informix1170" {
		t.Errorf("unexpected environment %v", env)
	}
	if _, ok := env["DB_LOCALE"]; ok {
		t.Error("unset option exported to the environment")
	}
}

func TestResolveQueryAndDSN(t *testing.T) {
	info, err := Resolve(
		Options{"informixserver": "srv", "driver": "duckdb", "dsn": "/tmp/remote.db", "literal_style": "ansi"},
		nil,
		Options{"database": "db", "query": "SELECT f1 FROM inttest WHERE f1 > 0", "connection_costs": "5"},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if info.RemoteQuery() != "SELECT f1 FROM inttest WHERE f1 > 0" {
		t.Errorf("unexpected query %q", info.RemoteQuery())
	}
	if info.DataSourceName() != "/tmp/remote.db" {
		t.Errorf("unexpected dsn %q", info.DataSourceName())
	}
	if info.ConnectionCosts != 5 {
		t.Errorf("expected connection costs 5, got %g", info.ConnectionCosts)
	}
	if info.ConnName() != "-db-srv" {
		t.Errorf("unexpected connection name %q", info.ConnName())
	}
}

func TestResolveErrors(t *testing.T) {
	server := Options{"informixserver": "srv"}
	tests := []struct {
		name   string
		server Options
		user   Options
		table  Options
		is     error
	}{
		{"missing server", Options{}, nil, Options{"database": "db", "table": "t"}, ErrMissingOption},
		{"missing database", server, nil, Options{"table": "t"}, ErrMissingOption},
		{"missing table and query", server, nil, Options{"database": "db"}, ErrMissingOption},
		{"bad number", server, nil, Options{"database": "db", "table": "t", "estimated_rows": "many"}, ErrInvalidOption},
		{"negative rows", server, nil, Options{"database": "db", "table": "t", "estimated_rows": "-1"}, ErrInvalidOption},
		{"negative costs", server, nil, Options{"database": "db", "table": "t", "connection_costs": "-3"}, ErrInvalidOption},
		{"invalid user option", server, Options{"role": "x"}, Options{"database": "db", "table": "t"}, ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.server, tt.user, tt.table)
			if !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
		})
	}

	_, err := Resolve(server, Options{"role": "x"}, Options{"database": "db", "table": "t"})
	if err == nil || !strings.HasPrefix(err.Error(), "user mapping: ") {
		t.Errorf("expected context prefix, got %v", err)
	}
}
