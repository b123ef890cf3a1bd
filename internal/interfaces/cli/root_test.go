package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the CLI with args and returns what it printed to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const structuredDoc = "（一）醫療費用：43,795元\n" +
	"（二）交通費用：9,600元\n" +
	"（三）看護費用：270,000元\n" +
	"綜上所述，總計323,395元。"

func TestRootHelpListsSubcommands(t *testing.T) {
	out, err := execute(t, "", "--help")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, sub := range []string{"analyze", "batch", "serve"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q", sub)
		}
	}
}

func TestRootRejectsUnknownCommand(t *testing.T) {
	if _, err := execute(t, "", "frobnicate"); err == nil {
		t.Fatal("expected an error for an unknown subcommand")
	}
}

func TestRootRejectsMissingConfigFile(t *testing.T) {
	if _, err := execute(t, "", "--config", "/nonexistent/claimsift.yaml", "analyze", "-"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestRootRejectsInvalidRulesFile(t *testing.T) {
	path := writeDoc(t, "rules.yaml", "categories: [unclosed")
	if _, err := execute(t, "text", "--rules", path, "analyze", "-"); err == nil {
		t.Fatal("expected an error for a malformed rules file")
	}
}
