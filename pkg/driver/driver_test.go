package driver

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/scc/pkg/config"
	"github.com/xplshn/scc/pkg/token"
	"github.com/xplshn/scc/pkg/util"
)

func TestSyntaxStage(t *testing.T) {
	var out bytes.Buffer
	res, err := Compile("main.c", []byte("int main() { x = 1 + 2; }"), config.NewConfig(), &out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("main.c syntax analysis succeeded!\n", out.String()); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
	if res.Stats.Functions != 1 || res.Stats.Statements != 1 || res.Identifiers != 2 {
		t.Errorf("result %+v", res)
	}
}

func TestLexStage(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Stage = config.StageLex
	var out bytes.Buffer
	res, err := Compile("a.c", []byte("int a;\nint b = = ;\n"), cfg, &out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("a.c lexical analysis succeeded, 2 lines in total!\n", out.String()); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
	if res.Tokens != 8 || res.Lines != 2 {
		t.Errorf("tokens %d lines %d", res.Tokens, res.Lines)
	}
}

func TestFatalDiagnosticStopsRun(t *testing.T) {
	for _, stage := range []config.Stage{config.StageLex, config.StageSyntax} {
		cfg := config.NewConfig()
		cfg.Stage = stage
		var out bytes.Buffer
		_, err := Compile("c.c", []byte("int x; /* never closed"), cfg, &out, Options{})
		if !util.IsFatal(err) {
			t.Errorf("%v: err = %v", stage, err)
		}
		want := "[ERROR][COMPILE]c.c(line:1): unterminated comment!\n"
		if diff := cmp.Diff(want, out.String()); diff != "" {
			t.Errorf("%v output (-want +got):\n%s", stage, diff)
		}
	}
}

func TestWarningsDoNotFail(t *testing.T) {
	var out bytes.Buffer
	res, err := Compile("w.c", []byte(`char *s = "\q";`), config.NewConfig(), &out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Warnings != 1 || !strings.HasSuffix(out.String(), "w.c syntax analysis succeeded!\n") {
		t.Errorf("warnings %d, output:\n%s", res.Warnings, out.String())
	}
}

func TestTokenDump(t *testing.T) {
	var out, dump bytes.Buffer
	if _, err := Compile("d.c", []byte("int x = 'a';"), config.NewConfig(), &out, Options{Tokens: &dump}); err != nil {
		t.Fatal(err)
	}
	var got [][]string
	for _, line := range strings.Split(strings.TrimSpace(dump.String()), "\n") {
		got = append(got, strings.Fields(line))
	}
	want := [][]string{
		{"1", "30", "keyword", "int"},
		{"1", "43", "identifier", "x"},
		{"1", "11", "operator", "="},
		{"1", "26", "character", "constant", "97", "'a'"},
		{"1", "21", "operator", ";"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dump (-want +got):\n%s", diff)
	}
}

func TestFormatOption(t *testing.T) {
	var out, formatted bytes.Buffer
	if _, err := Compile("f.c", []byte("int main(){return 0;}"), config.NewConfig(), &out, Options{Format: &formatted}); err != nil {
		t.Fatal(err)
	}
	want := "int main() {\n    return 0;\n}\n"
	if diff := cmp.Diff(want, formatted.String()); diff != "" {
		t.Errorf("format (-want +got):\n%s", diff)
	}
}

func TestContextsAreIndependent(t *testing.T) {
	var out bytes.Buffer
	a := NewContext("a.c", []byte("int alpha, beta;"), config.NewConfig(), &out, Options{})
	b := NewContext("b.c", []byte("int gamma;"), config.NewConfig(), &out, Options{})
	if _, err := a.Run(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if w, ok := b.Table.Find("gamma"); !ok || w.Code != token.Ident {
		t.Errorf("gamma = %v, %v; want the first identifier code", w, ok)
	}
	if _, ok := b.Table.Find("alpha"); ok {
		t.Error("identifier leaked between contexts")
	}

	a.Close()
	if a.Table.Len() != int(token.Ident) {
		t.Errorf("Close left %d words", a.Table.Len())
	}
	if _, ok := a.Table.Find("beta"); ok {
		t.Error("Close kept an identifier")
	}
	if w, ok := a.Table.Find("int"); !ok || w.Code != token.KwInt {
		t.Error("Close dropped a keyword")
	}
	b.Close()
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.c")
	if err := os.WriteFile(path, []byte("void f() { }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if _, err := CompileFile(path, config.NewConfig(), &out, Options{}); err != nil {
		t.Fatal(err)
	}
	if out.String() != path+" syntax analysis succeeded!\n" {
		t.Errorf("output %q", out.String())
	}

	_, err := CompileFile(filepath.Join(dir, "missing.c"), config.NewConfig(), &out, Options{})
	if !errors.Is(err, ErrOpen) || util.IsFatal(err) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
}
