package lexer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/scc/pkg/config"
	"github.com/xplshn/scc/pkg/intern"
	"github.com/xplshn/scc/pkg/token"
	"github.com/xplshn/scc/pkg/util"
)

func newLexer(src string, cfg *config.Config) (*Lexer, *bytes.Buffer) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	var out bytes.Buffer
	diag := util.NewReporter(&out, "t.c", cfg)
	return New("t.c", []byte(src), intern.NewTable(), diag, cfg), &out
}

func codes(toks []token.Token) []token.Code {
	var cs []token.Code
	for _, t := range toks {
		cs = append(cs, t.Code)
	}
	return cs
}

func TestMinimalFunction(t *testing.T) {
	l, _ := newLexer("int main() { return ; }", nil)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Code{
		token.KwInt, token.Ident, token.OpenParen, token.CloseParen,
		token.Begin, token.KwReturn, token.Semicolon, token.End, token.EOF,
	}
	if diff := cmp.Diff(want, codes(toks)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
	if toks[1].Text != "main" || toks[1].Raw != "main" {
		t.Errorf("identifier text %q raw %q", toks[1].Text, toks[1].Raw)
	}
}

func TestOperators(t *testing.T) {
	l, _ := newLexer("+ - * / % == != < <= > >= = -> . & ( ) [ ] { } ; , ...", nil)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	var want []token.Code
	for c := token.Plus; c <= token.EOF; c++ {
		want = append(want, c)
	}
	if diff := cmp.Diff(want, codes(toks)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
	for _, tok := range toks[:len(toks)-1] {
		if tok.Raw != token.Fixed[tok.Code].Spelling {
			t.Errorf("raw %q for %v", tok.Raw, tok.Code)
		}
	}
}

func TestGreedyOperators(t *testing.T) {
	l, _ := newLexer("a->b-c>=d<e&&f", nil)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Code{
		token.Ident, token.PointsTo, token.Ident + 1, token.Minus, token.Ident + 2,
		token.Geq, token.Ident + 3, token.Lt, token.Ident + 4, token.And, token.And,
		token.Ident + 5, token.EOF,
	}
	if diff := cmp.Diff(want, codes(toks)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		src   string
		code  token.Code
		value int64
		text  string
		raw   string
	}{
		{"42", token.CInt, 42, "42", "42"},
		{"3.14", token.CInt, 3, "3.14", "3.14"},
		{`'a'`, token.CChar, 'a', "a", `'a'`},
		{`'\n'`, token.CChar, '\n', "\n", `'\n'`},
		{`'\0'`, token.CChar, 0, "\x00", `'\0'`},
		{`"a\nb"`, token.CStr, 0, "a\nb", `"a\nb"`},
		{`"say \"hi\""`, token.CStr, 0, `say "hi"`, `"say \"hi\""`},
		{`""`, token.CStr, 0, "", `""`},
	}
	for _, tt := range tests {
		l, _ := newLexer(tt.src, nil)
		tok := l.Next()
		if tok.Code != tt.code || tok.Value != tt.value || tok.Text != tt.text || tok.Raw != tt.raw {
			t.Errorf("%s: got {%v %d %q %q}, want {%v %d %q %q}",
				tt.src, tok.Code, tok.Value, tok.Text, tok.Raw, tt.code, tt.value, tt.text, tt.raw)
		}
	}
}

func TestStringBuffers(t *testing.T) {
	l, _ := newLexer(`"a\nb"`, nil)
	l.Next()
	if len(l.Text()) != 3 {
		t.Errorf("decoded length %d, want 3", len(l.Text()))
	}
	if len(l.Raw()) != 6 {
		t.Errorf("raw length %d, want 6", len(l.Raw()))
	}
}

func TestKeywordsAndLiteralNames(t *testing.T) {
	l, _ := newLexer("int char string struct __stdcall", nil)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Code{token.KwInt, token.KwChar, token.Ident, token.KwStruct, token.KwStdcall, token.EOF}
	if diff := cmp.Diff(want, codes(toks)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
}

// The end-of-file word is interned like any fixed token, so its spelling
// in the source ends the token stream.
func TestEndOfFileSpelling(t *testing.T) {
	l, _ := newLexer("a End_Of_File b", nil)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]token.Code{token.Ident, token.EOF}, codes(toks)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
	if eof := toks[1]; eof.Text != "End_Of_File" || eof.Raw != "End_Of_File" {
		t.Errorf("text %q raw %q, want the spelling once", eof.Text, eof.Raw)
	}
}

func TestIdentifiersShareCodes(t *testing.T) {
	l, _ := newLexer("x y x", nil)
	toks, _ := l.All()
	if toks[0].Code != toks[2].Code || toks[0].Code == toks[1].Code {
		t.Errorf("codes %v", codes(toks))
	}
}

func TestComments(t *testing.T) {
	src := "/* one\n two **/ a // rest\n/***/ b"
	l, _ := newLexer(src, nil)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]token.Code{token.Ident, token.Ident + 1, token.EOF}, codes(toks)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
	if toks[0].Line != 2 || toks[1].Line != 3 {
		t.Errorf("lines %d %d, want 2 3", toks[0].Line, toks[1].Line)
	}
}

func TestLineCommentsDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatCComments, false)
	l, _ := newLexer("a // b", cfg)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Code{token.Ident, token.Divide, token.Divide, token.Ident + 1, token.EOF}
	if diff := cmp.Diff(want, codes(toks)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
}

func TestLineCounting(t *testing.T) {
	l, _ := newLexer("a\nb\n\nc\n", nil)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	var lines []int
	for _, tok := range toks {
		lines = append(lines, tok.Line)
	}
	if diff := cmp.Diff([]int{1, 2, 4, 5}, lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
	if l.Lines() != 4 {
		t.Errorf("Lines() = %d, want 4", l.Lines())
	}
	if p := l.File().Position(toks[2].Pos); p.Line != 4 || p.Column != 1 {
		t.Errorf("position of c = %v", p)
	}
}

func TestLexicalErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a /* open", "[ERROR][COMPILE]t.c(line:1): unterminated comment!\n"},
		{"x\n!y", "[ERROR][COMPILE]t.c(line:2): unsupported operator '!'!\n"},
		{"a..b", "[ERROR][COMPILE]t.c(line:1): '..' is not an operator, did you mean '...'!\n"},
		{"a @", "[ERROR][COMPILE]t.c(line:1): unrecognized character: \\x40!\n"},
		{"\"abc", "[ERROR][COMPILE]t.c(line:1): missing closing quote \"!\n"},
		{"'a", "[ERROR][COMPILE]t.c(line:1): missing closing quote '!\n"},
	}
	for _, tt := range tests {
		l, out := newLexer(tt.src, nil)
		_, err := l.All()
		if !util.IsFatal(err) {
			t.Errorf("%q: err = %v, want fatal", tt.src, err)
		}
		if diff := cmp.Diff(tt.want, out.String()); diff != "" {
			t.Errorf("%q (-want +got):\n%s", tt.src, diff)
		}
	}
}

func TestWarnings(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnFraction, true)
	l, out := newLexer(`"\q" 1.5 99999999999999999999 'ab' ''`, cfg)
	toks, err := l.All()
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Text != "q" {
		t.Errorf("unknown escape decoded to %q, want the character itself", toks[0].Text)
	}
	if toks[3].Value != 'a' {
		t.Errorf("multi-character constant value %d", toks[3].Value)
	}
	var want strings.Builder
	for _, msg := range []string{
		"illegal escape character: '\\q'",
		"fractional part of '1.5' is truncated",
		"integer constant '99999999999999999999' is too large",
		"multi-character character constant 'ab'",
		"empty character constant",
	} {
		want.WriteString("[WARNING][COMPILE]t.c(line:1): " + msg + "!\n")
	}
	if diff := cmp.Diff(want.String(), out.String()); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
}

func TestEscapeWarningsDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnUnrecognizedEscape, false)
	l, out := newLexer(`"\q"`, cfg)
	if _, err := l.All(); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}
