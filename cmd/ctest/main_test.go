package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilterOutput(t *testing.T) {
	out := "keep 1\nnoise: 12ms\nkeep 2"
	if diff := cmp.Diff("keep 1\nkeep 2", filterOutput(out, []string{"noise"})); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := filterOutput(out, nil); got != out {
		t.Errorf("nil filter changed output: %q", got)
	}
}

func TestCompareRuns(t *testing.T) {
	ok := Execution{Stdout: "__SOURCE__ syntax analysis succeeded!\n"}
	golden := []TestRun{{Name: "syntax", Result: ok}, {Name: "lex", Result: Execution{Stdout: "x"}}}

	tests := []struct {
		name   string
		target []TestRun
		status string
		diff   string
	}{
		{"match", []TestRun{{Name: "lex", Result: Execution{Stdout: "x", Duration: 5}}, {Name: "syntax", Result: ok}}, "PASS", ""},
		{"missing run", []TestRun{{Name: "syntax", Result: ok}}, "FAIL", "Test run 'lex' missing"},
		{"exit code", []TestRun{{Name: "syntax", Result: Execution{Stdout: ok.Stdout, ExitCode: 1}}, {Name: "lex", Result: Execution{Stdout: "x"}}}, "FAIL", "Exit Code mismatch"},
		{"stderr", []TestRun{{Name: "syntax", Result: ok}, {Name: "lex", Result: Execution{Stdout: "x", Stderr: "boom"}}}, "FAIL", "Run 'lex' STDERR mismatch"},
		{"timeout", []TestRun{{Name: "syntax", Result: ok}, {Name: "lex", Result: Execution{TimedOut: true}}}, "FAIL", "Run 'lex' timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := compareRuns(golden, tt.target, nil)
			if r.Status != tt.status {
				t.Errorf("status %s, want %s (%s)", r.Status, tt.status, r.Diff)
			}
			if tt.diff != "" && !strings.Contains(r.Diff, tt.diff) {
				t.Errorf("diff %q does not mention %q", r.Diff, tt.diff)
			}
		})
	}
}

func TestHashFileAndGoldenPath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.c")
	b := filepath.Join(dir, "b.c")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("int x;\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ha, err := hashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := hashFile(b)
	if ha != hb || ha == "" {
		t.Errorf("identical files hash to %q and %q", ha, hb)
	}
	if got := getJSONPath(a); got != filepath.Join(dir, ".a.c.json") {
		t.Errorf("golden path %s", got)
	}

	files, err := expandGlobPatterns(filepath.Join(dir, "*.c") + " " + a)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{a, b}, files); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
}
