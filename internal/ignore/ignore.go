// Package ignore decides which catalog tables the engine leaves alone: the
// reserved framework tables plus user patterns from .pgmergeignore.
package ignore

import (
	"path/filepath"
	"strings"
)

// StagingPrefix names the temporary tables used while transplanting rows.
const StagingPrefix = "pgmerge_staging_"

// ReservedTables are never reported by the introspector, so they are never dropped.
var ReservedTables = []string{
	StagingPrefix + "*",
	"schema_migrations",
	"goose_db_version",
	"__*",
}

// Config holds ignore patterns. Patterns support * wildcards and ! negation;
// a matching negation always wins.
type Config struct {
	Tables  []string `toml:"tables,omitempty" yaml:"tables,omitempty"`
	Schemas []string `toml:"schemas,omitempty" yaml:"schemas,omitempty"`
}

// Merge returns a config holding the patterns of both.
func (c *Config) Merge(other *Config) *Config {
	merged := &Config{}
	for _, cfg := range []*Config{c, other} {
		if cfg == nil {
			continue
		}
		merged.Tables = append(merged.Tables, cfg.Tables...)
		merged.Schemas = append(merged.Schemas, cfg.Schemas...)
	}
	return merged
}

// IsReserved reports whether name matches a reserved table pattern.
func IsReserved(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range ReservedTables {
		if matchPattern(pattern, lower) {
			return true
		}
	}
	return false
}

// ShouldIgnoreTable reports whether the table is reserved or matches a table
// pattern. Patterns are matched against both "name" and "schema.name".
func (c *Config) ShouldIgnoreTable(schemaName, name string) bool {
	if IsReserved(name) {
		return true
	}
	if c == nil {
		return false
	}
	return shouldIgnore(c.Tables, name, schemaName+"."+name)
}

// ShouldIgnoreSchema reports whether every table of the schema is ignored.
func (c *Config) ShouldIgnoreSchema(schemaName string) bool {
	if c == nil {
		return false
	}
	return shouldIgnore(c.Schemas, schemaName)
}

func shouldIgnore(patterns []string, names ...string) bool {
	matched := false
	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "!") {
			continue
		}
		if matchAny(pattern, names) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, pattern := range patterns {
		if neg, ok := strings.CutPrefix(pattern, "!"); ok && matchAny(neg, names) {
			return false
		}
	}
	return true
}

func matchAny(pattern string, names []string) bool {
	for _, name := range names {
		if matchPattern(pattern, name) {
			return true
		}
	}
	return false
}

// matchPattern is a case-insensitive glob match. An invalid pattern matches
// only itself.
func matchPattern(pattern, name string) bool {
	pattern, name = strings.ToLower(pattern), strings.ToLower(name)
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		return pattern == name
	}
	return matched
}
