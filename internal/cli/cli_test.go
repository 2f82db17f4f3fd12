package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testConfig writes a small-world configuration and returns its path and the database
// path it names.
func testConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "concord.db")
	body := "simulation:\n  seed: 42\n  interval: 10ms\n  action_chance: 0.5\n" +
		"world:\n  radius: 6\n  realms: 5\n  sea_level: 0.2\n  mountain_lvl: 0.8\n" +
		"database:\n  path: " + db + "\nlog:\n  level: error\n"
	path := filepath.Join(dir, "concord.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, db
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "concord dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestStepThenInspect(t *testing.T) {
	cfg, db := testConfig(t)

	out, err := run(t, "--config", cfg, "step", "3")
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !strings.Contains(out, "now Bloommoon, Year 1") {
		t.Errorf("step output = %q", out)
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("database not created: %v", err)
	}

	// A second step resumes from the save.
	out, err = run(t, "--config", cfg, "step", "2")
	if err != nil {
		t.Fatalf("second step: %v", err)
	}
	if !strings.Contains(out, "Year 1") || !strings.Contains(out, "Advanced 2 months") {
		t.Errorf("second step output = %q", out)
	}

	out, err = run(t, "--config", cfg, "inspect")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "1st") || !strings.Contains(out, "PERSONALITY") {
		t.Errorf("inspect output = %q", out)
	}

	out, err = run(t, "--config", cfg, "inspect", "1")
	if err != nil {
		t.Fatalf("inspect realm: %v", err)
	}
	if !strings.Contains(out, "TOWARD") {
		t.Errorf("inspect realm output = %q", out)
	}
}

func TestStepRejectsBadInput(t *testing.T) {
	cfg, _ := testConfig(t)
	if _, err := run(t, "--config", cfg, "step", "zero"); err == nil {
		t.Error("step accepted a non-number")
	}
	if _, err := run(t, "--config", cfg, "inspect", "9999"); err == nil {
		t.Error("inspect accepted an unknown realm")
	}
}

func TestRunStopsAfterMonths(t *testing.T) {
	cfg, _ := testConfig(t)
	out, err := run(t, "--config", cfg, "run", "--no-server", "--months", "2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "World state saved") {
		t.Errorf("run output = %q", out)
	}
}
