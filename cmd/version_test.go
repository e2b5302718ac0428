package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pgschema/pgmerge/internal/version"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer

	root := NewRootCmd(nil)
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	output := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(output, "pgmerge v"+version.App()) {
		t.Errorf("expected output to start with 'pgmerge v%s', got: %s", version.App(), output)
	}
}
