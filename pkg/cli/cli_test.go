package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	var (
		out, stage string
		verbose    bool
		defs       []string
	)
	fs := NewFlagSet("scc")
	fs.String(&out, "output", "o", "", "Output file.", "file")
	fs.String(&stage, "stage", "", "syntax", "Stage.", "stage")
	fs.Bool(&verbose, "verbose", "v", false, "Verbose.")
	fs.List(&defs, "define", "D", nil, "Define.", "name")

	args := []string{"-v", "-oout.txt", "--stage=lex", "-D", "A", "-DB", "main.c", "--", "-x.c"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	if out != "out.txt" || stage != "lex" || !verbose {
		t.Errorf("out=%q stage=%q verbose=%v", out, stage, verbose)
	}
	if diff := cmp.Diff([]string{"A", "B"}, defs); diff != "" {
		t.Errorf("defines (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"main.c", "-x.c"}, fs.Args()); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	var s string
	for _, args := range [][]string{{"--nope"}, {"-q"}, {"--stage"}} {
		fs := NewFlagSet("scc")
		fs.String(&s, "stage", "", "", "Stage.", "stage")
		if err := fs.Parse(args); err == nil {
			t.Errorf("Parse(%q) succeeded", args)
		}
	}
}

func TestHelpListsGroups(t *testing.T) {
	app := NewApp("scc")
	app.Synopsis = "[options] <input.c>"
	var on, off bool
	app.FlagSet.AddFlagGroup("Warning Flags", "", "warning", "Available Warnings:", []FlagGroupEntry{
		{Name: "u-esc", Prefix: "W", Usage: "Unrecognized escapes.", Enabled: &on, Disabled: &off, Default: true},
	})
	var buf bytes.Buffer
	app.Help(&buf)
	for _, want := range []string{"Synopsis", "-W<warning>", "-Wno-<warning>", "u-esc", "|x|"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help page lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("the quick brown fox jumps", 10)
	want := []string{"the quick", "brown fox", "jumps"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrapText (-want +got):\n%s", diff)
	}
}

func TestIndentState(t *testing.T) {
	is := NewIndentState(4)
	is.Push()
	is.Push()
	if is.Current() != "        " || is.Depth() != 2 {
		t.Errorf("depth %d indent %q", is.Depth(), is.Current())
	}
	is.Pop()
	is.Pop()
	is.Pop()
	if is.Depth() != 0 {
		t.Errorf("Pop below zero: depth %d", is.Depth())
	}
}
