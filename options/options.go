// Package options validates foreign server, user mapping and foreign table
// options and resolves them into the identity of a remote connection.
package options

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Options is a set of options attached to a catalog object.
type Options map[string]string

// Context identifies the catalog object options belong to.
type Context int

const (
	ServerContext Context = iota
	UserMappingContext
	TableContext
)

func (c Context) String() string {
	switch c {
	case ServerContext:
		return "foreign server"
	case UserMappingContext:
		return "user mapping"
	case TableContext:
		return "foreign table"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidOption is wrapped by errors for unknown or malformed options.
	ErrInvalidOption = errors.New("invalid option")
	// ErrConflictingOptions is returned for mutually exclusive options.
	ErrConflictingOptions = errors.New("conflicting options")
	// ErrMissingOption is returned when a required option is absent.
	ErrMissingOption = errors.New("missing required option")
)

var validOptions = map[Context][]string{
	ServerContext:      {"informixserver", "informixdir", "client_locale", "db_locale", "driver", "dsn", "literal_style"},
	UserMappingContext: {"username", "user", "password"},
	TableContext:       {"database", "query", "table", "estimated_rows", "connection_costs"},
}

// ValidOptions returns the option names accepted in ctx.
func ValidOptions(ctx Context) []string {
	return append([]string(nil), validOptions[ctx]...)
}

// InvalidOptionError reports an option that is not valid in its context.
type InvalidOptionError struct {
	Name    string
	Context Context
}

func (e *InvalidOptionError) Error() string {
	valid := ValidOptions(e.Context)
	hint := "<none>"
	if len(valid) > 0 {
		hint = strings.Join(valid, ",")
	}
	return fmt.Sprintf("invalid option %q (valid options in this context are: %s)", e.Name, hint)
}

func (e *InvalidOptionError) Unwrap() error { return ErrInvalidOption }

// Validate checks the options of a single catalog object.
func Validate(ctx Context, opts Options) error {
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		valid := false
		for _, v := range validOptions[ctx] {
			if v == name {
				valid = true
				break
			}
		}
		if !valid {
			return &InvalidOptionError{Name: name, Context: ctx}
		}
	}

	switch ctx {
	case UserMappingContext:
		_, hasUser := opts["user"]
		_, hasUsername := opts["username"]
		if hasUser && hasUsername {
			return fmt.Errorf("%w: user cannot be used with username", ErrConflictingOptions)
		}
	case TableContext:
		_, hasQuery := opts["query"]
		_, hasTable := opts["table"]
		if hasQuery && hasTable {
			return fmt.Errorf("%w: query cannot be used with table", ErrConflictingOptions)
		}
	case ServerContext:
		if s, ok := opts["literal_style"]; ok && s != "informix" && s != "ansi" {
			return fmt.Errorf("%w: literal_style must be \"informix\" or \"ansi\", got %q", ErrInvalidOption, s)
		}
	}
	return nil
}

// Defaults applied by Resolve.
const (
	DefaultEstimatedRows   = 100.0
	DefaultConnectionCosts = 100.0
	DefaultDriver          = "informix"
	DefaultLiteralStyle    = "informix"
)

// ConnectionInfo is the resolved identity and planning data of a foreign
// table scan.
type ConnectionInfo struct {
	ServerName   string `mapstructure:"informixserver"`
	InformixDir  string `mapstructure:"informixdir"`
	ClientLocale string `mapstructure:"client_locale"`
	DBLocale     string `mapstructure:"db_locale"`
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	LiteralStyle string `mapstructure:"literal_style"`

	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	Database        string  `mapstructure:"database"`
	Query           string  `mapstructure:"query"`
	Table           string  `mapstructure:"table"`
	EstimatedRows   float64 `mapstructure:"estimated_rows"`
	ConnectionCosts float64 `mapstructure:"connection_costs"`
}

// Resolve validates the options of a foreign table, its server and the user
// mapping and merges them into a ConnectionInfo.
func Resolve(server, userMapping, table Options) (*ConnectionInfo, error) {
	for _, c := range []struct {
		ctx  Context
		opts Options
	}{
		{TableContext, table},
		{ServerContext, server},
		{UserMappingContext, userMapping},
	} {
		if err := Validate(c.ctx, c.opts); err != nil {
			return nil, fmt.Errorf("%s: %w", c.ctx, err)
		}
	}

	merged := make(map[string]any, len(server)+len(userMapping)+len(table))
	for _, opts := range []Options{table, server, userMapping} {
		for k, v := range opts {
			if k == "user" {
				k = "username"
			}
			merged[k] = v
		}
	}

	info := &ConnectionInfo{
		Driver:          DefaultDriver,
		LiteralStyle:    DefaultLiteralStyle,
		EstimatedRows:   DefaultEstimatedRows,
		ConnectionCosts: DefaultConnectionCosts,
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           info,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(merged); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	if err := info.validate(); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *ConnectionInfo) validate() error {
	if c.ServerName == "" {
		return fmt.Errorf("%w: informixserver", ErrMissingOption)
	}
	if c.Database == "" {
		return fmt.Errorf("%w: database", ErrMissingOption)
	}
	if c.Query == "" && c.Table == "" {
		return fmt.Errorf("%w: one of query or table", ErrMissingOption)
	}
	if c.EstimatedRows < 0 {
		return fmt.Errorf("%w: estimated_rows must not be negative, got %g", ErrInvalidOption, c.EstimatedRows)
	}
	if c.ConnectionCosts < 0 {
		return fmt.Errorf("%w: connection_costs must not be negative, got %g", ErrInvalidOption, c.ConnectionCosts)
	}
	return nil
}

// ConnName identifies the cached remote connection: "user-database-server".
func (c *ConnectionInfo) ConnName() string {
	return c.Username + "-" + c.Database + "-" + c.ServerName
}

// DatabaseString is the remote database designation "database@server".
func (c *ConnectionInfo) DatabaseString() string {
	return c.Database + "@" + c.ServerName
}

// DataSourceName is passed to the database/sql driver. It defaults to the
// database string.
func (c *ConnectionInfo) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.DatabaseString()
}

// StatementName names the prepared statement of one scan.
func (c *ConnectionInfo) StatementName(scanID string) string {
	return c.ConnName() + "_" + scanID
}

// CursorName names the cursor of one scan.
func (c *ConnectionInfo) CursorName(scanID string) string {
	return c.StatementName(scanID) + "_cur"
}

// RemoteQuery is the base query sent to the remote server.
func (c *ConnectionInfo) RemoteQuery() string {
	if c.Query != "" {
		return c.Query
	}
	return "SELECT * FROM " + c.Table
}

// Environment lists the client environment settings given as options.
func (c *ConnectionInfo) Environment() map[string]string {
	env := make(map[string]string, 4)
	for k, v := range map[string]string{
		"INFORMIXSERVER": c.ServerName,
		"INFORMIXDIR":    c.InformixDir,
		"CLIENT_LOCALE":  c.ClientLocale,
		"DB_LOCALE":      c.DBLocale,
	} {
		if v != "" {
			env[k] = v
		}
	}
	return env
}
