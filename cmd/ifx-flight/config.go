package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	ifxfdw "github.com/hugr-lab/ifx-fdw"
)

// Config is the YAML configuration of the ifx-flight server.
type Config struct {
	Listen         string            `yaml:"listen"`
	Admin          string            `yaml:"admin"`
	Address        string            `yaml:"address"`
	LogLevel       string            `yaml:"log_level"`
	MaxMessageSize int               `yaml:"max_message_size"`
	Tokens         map[string]string `yaml:"tokens"`
	Servers        []ServerConfig    `yaml:"servers"`
	Tables         []TableConfig     `yaml:"tables"`
}

// ServerConfig defines a foreign server and its user mappings.
type ServerConfig struct {
	Name         string                       `yaml:"name"`
	Options      map[string]string            `yaml:"options"`
	UserMappings map[string]map[string]string `yaml:"user_mappings"`
}

// TableConfig defines a foreign table.
type TableConfig struct {
	Name    string            `yaml:"name"`
	Server  string            `yaml:"server"`
	Columns []ColumnConfig    `yaml:"columns"`
	Options map[string]string `yaml:"options"`
}

type ColumnConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	NotNull bool   `yaml:"not_null"`
}

// LoadConfig reads and parses the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration and fills in defaults.
// Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":50051"
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("config defines no tables")
	}
	return &cfg, nil
}

// Level returns the configured log level, Info when unset.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Authenticator returns the token authenticator, or nil when no tokens are
// configured.
func (c *Config) Authenticator() ifxfdw.Authenticator {
	if len(c.Tokens) == 0 {
		return nil
	}
	return ifxfdw.StaticTokens(c.Tokens)
}

// Builder returns a catalog builder with every server and table of the
// configuration. Tables are added in name order so relation OIDs do not
// depend on the order of the file.
func (c *Config) Builder() *ifxfdw.CatalogBuilder {
	b := ifxfdw.NewCatalogBuilder()
	for _, s := range c.Servers {
		b.Server(ifxfdw.ServerDef{
			Name:         s.Name,
			Options:      s.Options,
			UserMappings: s.UserMappings,
		})
	}

	tables := append([]TableConfig(nil), c.Tables...)
	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	for _, t := range tables {
		cols := make([]ifxfdw.ColumnDef, len(t.Columns))
		for i, col := range t.Columns {
			cols[i] = ifxfdw.ColumnDef{Name: col.Name, Type: col.Type, NotNull: col.NotNull}
		}
		b.Table(ifxfdw.ForeignTableDef{
			Name:    t.Name,
			Server:  t.Server,
			Columns: cols,
			Options: t.Options,
		})
	}
	return b
}
