// Package config reads the optional pgmerge.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pgschema/pgmerge/internal/ignore"
	"github.com/pgschema/pgmerge/model"
	"github.com/pgschema/pgmerge/schema"
)

// DefaultFile is read from the working directory when --config is not given.
const DefaultFile = "pgmerge.yaml"

// Connection holds database connection settings. Empty fields fall back to
// flags, PG* environment variables and built-in defaults.
type Connection struct {
	Host            string `yaml:"host,omitempty"`
	Port            int    `yaml:"port,omitempty"`
	Database        string `yaml:"database,omitempty"`
	User            string `yaml:"user,omitempty"`
	Password        string `yaml:"password,omitempty"`
	SSLMode         string `yaml:"sslmode,omitempty"`
	ApplicationName string `yaml:"application_name,omitempty"`
}

// Config is the project file:
//
//	connection:
//	  host: localhost
//	  database: inventory
//	  password: ${INVENTORY_DB_PASSWORD}
//	schemas: [public, sales]
//	allow_drop: [public.audit_entry]
//	ignore:
//	  tables: ["tmp_*"]
//	lock_timeout: 5s
type Config struct {
	Connection Connection `yaml:"connection,omitempty"`
	// Schemas limits introspection. Empty means the schemas of the models.
	Schemas []string `yaml:"schemas,omitempty"`
	// AllowDrop lists tables that may be rebuilt destructively even when
	// they hold rows, as "schema.table" or "table" for the default schema.
	AllowDrop   []string       `yaml:"allow_drop,omitempty"`
	Ignore      *ignore.Config `yaml:"ignore,omitempty"`
	LockTimeout string         `yaml:"lock_timeout,omitempty"`
}

// Load reads the config file at path. A missing DefaultFile yields an empty
// config; any other missing path is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && path == DefaultFile {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a config document. ${VAR} references are expanded from the
// environment and unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// AllowsDrop reports whether id is listed in AllowDrop.
func (c *Config) AllowsDrop(id schema.TableIdentity) bool {
	for _, entry := range c.AllowDrop {
		schemaName, name, found := strings.Cut(entry, ".")
		if !found {
			schemaName, name = schema.DefaultSchema, entry
		}
		if id.Equal(schema.NewTableIdentity(schemaName, name)) {
			return true
		}
	}
	return false
}

// Provider wraps p so that tables listed in AllowDrop are marked droppable.
func (c *Config) Provider(p model.Provider) model.Provider {
	if len(c.AllowDrop) == 0 {
		return p
	}
	return &allowDropProvider{Provider: p, cfg: c}
}

type allowDropProvider struct {
	model.Provider
	cfg *Config
}

func (p *allowDropProvider) Desired() (*schema.Schema, error) {
	desired, err := p.Provider.Desired()
	if err != nil {
		return nil, err
	}
	for _, t := range desired.Tables {
		if p.cfg.AllowsDrop(t.Identity) {
			t.AllowDrop = true
		}
	}
	return desired, nil
}
