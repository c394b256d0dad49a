package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runAdmin(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vendroute.yaml")
	yaml := fmt.Sprintf("database:\n  driver: sqlite\n  sqlite:\n    path: %s\n", filepath.Join(dir, "admin.db"))
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestSeedAndCheck(t *testing.T) {
	cfg := testConfig(t)

	out := runAdmin(t, "--config", cfg, "seed", "--flex")
	if !strings.Contains(out, "added 15 stops") {
		t.Errorf("seed output = %q", out)
	}

	out = runAdmin(t, "--config", cfg, "check")
	for _, want := range []string{"customers: 5", "routes:    5", "stops:     15", "KL-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}

	// A second seed leaves populated tables alone.
	out = runAdmin(t, "--config", cfg, "seed", "--flex")
	if !strings.Contains(out, "added 0 stops") {
		t.Errorf("reseed output = %q", out)
	}
}

func TestMigrateAndVersion(t *testing.T) {
	out := runAdmin(t, "--config", testConfig(t), "migrate")
	if !strings.Contains(out, "schema up to date (sqlite)") {
		t.Errorf("migrate output = %q", out)
	}
	out = runAdmin(t, "version")
	if !strings.Contains(out, "vendroute-admin dev") {
		t.Errorf("version output = %q", out)
	}
}
