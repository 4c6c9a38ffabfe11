package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/lattice/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lattice.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigDefaultRoundTrips(t *testing.T) {
	out, err := capture(t, "config", "default")
	if err != nil {
		t.Fatalf("config default: %v", err)
	}
	got, err := config.Parse([]byte(out))
	if err != nil {
		t.Fatalf("printed defaults do not parse: %v\n%s", err, out)
	}
	if diff := cmp.Diff(config.Default(), got); diff != "" {
		t.Errorf("defaults changed after printing (-want +got):\n%s", diff)
	}
}

func TestConfigCheck(t *testing.T) {
	valid := writeConfig(t, "version: v1.0.0\n")
	out, err := capture(t, "--config", valid, "config", "check")
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "valid") {
		t.Errorf("unexpected output %q", out)
	}

	invalid := writeConfig(t, "version: v1.0.0\nscheduler:\n  workers: 0\natlas:\n  max_pages: 0\n")
	_, err = capture(t, "--config", invalid, "config", "check")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"scheduler.workers", "atlas.max_pages"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfigUnknownSubcommand(t *testing.T) {
	if _, err := capture(t, "config", "edit"); err == nil {
		t.Error("expected error for unknown subcommand")
	}
}
