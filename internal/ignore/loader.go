package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// FileName is the default ignore file, read from the working directory.
const FileName = ".pgmergeignore"

// fileFormat is the TOML layout of the ignore file:
//
//	[tables]
//	patterns = ["audit_*", "!audit_core"]
//
//	[schemas]
//	patterns = ["scratch"]
type fileFormat struct {
	Tables  patternList `toml:"tables"`
	Schemas patternList `toml:"schemas"`
}

type patternList struct {
	Patterns []string `toml:"patterns"`
}

// Load reads FileName from the working directory.
func Load() (*Config, error) {
	return LoadFile(FileName)
}

// LoadFile reads an ignore file. A missing file yields a nil config, which
// ignores only the reserved tables.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat ignore file: %w", err)
	}

	var f fileFormat
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ignore file %s: %w", path, err)
	}
	return &Config{Tables: f.Tables.Patterns, Schemas: f.Schemas.Patterns}, nil
}
