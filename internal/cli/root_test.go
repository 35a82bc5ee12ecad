package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/turtacn/nightowl/internal/status"
	"github.com/turtacn/nightowl/pkg/errors"
)

func TestCommands(t *testing.T) {
	if rootCmd.Name() != "nightowl" {
		t.Errorf("Expected root command name nightowl, got %s", rootCmd.Name())
	}

	if len(rootCmd.Commands()) < 2 {
		t.Errorf("Expected at least 2 subcommands, got %d", len(rootCmd.Commands()))
	}
}

func TestFlags(t *testing.T) {
	fs := rootCmd.PersistentFlags()
	for _, name := range []string{"config", "file", "time", "threshold", "host", "port", "password", "no-poweroff"} {
		if fs.Lookup(name) == nil {
			t.Errorf("Expected flag --%s", name)
		}
	}
	for short, name := range map[string]string{"c": "config", "f": "file", "t": "time"} {
		if f := fs.ShorthandLookup(short); f == nil || f.Name != name {
			t.Errorf("Expected -%s to alias --%s", short, name)
		}
	}
}

func TestStatusCommand_NotRunning(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetArgs([]string{"status",
		"-c", filepath.Join(dir, "absent.yml"),
		"--status-socket", filepath.Join(dir, "none.sock"),
	})
	err := rootCmd.Execute()
	if errors.CodeOf(err) != errors.ErrCodeStatusSocket {
		t.Errorf("Expected status socket error, got %v", err)
	}
}

func TestPrintSnapshot(t *testing.T) {
	var buf bytes.Buffer
	snap := status.Snapshot{RunID: "abc", CheckerEnabled: true, Threshold: 1}
	if err := printSnapshot(&buf, snap); err != nil {
		t.Fatal(err)
	}
	var got status.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got != snap {
		t.Errorf("Expected %+v, got %+v", snap, got)
	}
}
