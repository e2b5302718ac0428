package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pgschema/pgmerge/internal/logger"
	"github.com/pgschema/pgmerge/model"
)

type Customer struct {
	model.Record[int64]
	Name string `pgmerge:"size:50"`
}

func TestRootCommand(t *testing.T) {
	var buf bytes.Buffer
	root := NewRootCmd(model.NewScope("public", Customer{}))
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"--help"})

	if err := root.Execute(); err != nil {
		t.Errorf("root command with --help failed: %v", err)
	}

	if !strings.Contains(buf.String(), "pgmerge compares tables declared as Go structs") {
		t.Errorf("expected help output to contain description, got: %s", buf.String())
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCmd(model.NewScope("public", Customer{}))

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, expected := range []string{"version", "plan", "apply"} {
		if !names[expected] {
			t.Errorf("expected subcommand %s not found in: %v", expected, names)
		}
	}
}

func TestDebugFlagEnablesDebugLogging(t *testing.T) {
	t.Cleanup(func() { logger.SetGlobal(nil, false) })

	root := NewRootCmd(nil)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--debug", "version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !logger.IsDebug() {
		t.Error("expected --debug to enable debug logging")
	}
}
