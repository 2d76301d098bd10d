// Package driver runs one compilation: it owns the interning table, the
// reporter, the lexer and the parser for a single source file, so several
// compilations can run side by side in one process.
package driver

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xplshn/scc/pkg/config"
	"github.com/xplshn/scc/pkg/format"
	"github.com/xplshn/scc/pkg/intern"
	"github.com/xplshn/scc/pkg/lexer"
	"github.com/xplshn/scc/pkg/parser"
	"github.com/xplshn/scc/pkg/token"
	"github.com/xplshn/scc/pkg/util"
)

// ErrOpen is returned by CompileFile when the source cannot be read.
var ErrOpen = errors.New("cannot open source file")

type Options struct {
	// Tokens receives one line per accepted token.
	Tokens io.Writer
	// Format receives the accepted source re-printed with canonical layout.
	Format io.Writer
	// Color enables ANSI colours in Format output.
	Color bool
}

// Result summarizes a successful run.
type Result struct {
	Stage        config.Stage
	Lines        int
	Tokens       int
	Warnings     int
	Identifiers  int
	Stats        parser.Stats
	Declarations []parser.Declaration
}

type Context struct {
	Name   string
	Config *config.Config
	Table  *intern.Table
	Diag   *util.Reporter
	Lexer  *lexer.Lexer
	Parser *parser.Parser

	out     io.Writer
	opts    Options
	printer *format.Printer
	tokens  int
}

func NewContext(name string, src []byte, cfg *config.Config, out io.Writer, opts Options) *Context {
	c := &Context{Name: name, Config: cfg, Table: intern.NewTable(), out: out, opts: opts}
	c.Diag = util.NewReporter(out, name, cfg)
	c.Lexer = lexer.New(name, src, c.Table, c.Diag, cfg)
	c.Parser = parser.New(c.Lexer, c.Diag, cfg)
	c.Parser.SetObserver(c)
	if opts.Format != nil {
		c.printer = format.New(opts.Format, opts.Color)
	}
	return c
}

// Compile runs the configured stage over src and prints the success line.
// A fatal diagnostic is returned as *util.FatalError after it was printed.
func Compile(name string, src []byte, cfg *config.Config, out io.Writer, opts Options) (Result, error) {
	c := NewContext(name, src, cfg, out, opts)
	defer c.Close()
	return c.Run()
}

// CompileFile is Compile on the contents of path.
func CompileFile(path string, cfg *config.Config, out io.Writer, opts Options) (Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	return Compile(path, src, cfg, out, opts)
}

func (c *Context) Run() (Result, error) {
	res := Result{Stage: c.Config.Stage}
	var err error
	switch c.Config.Stage {
	case config.StageLex:
		err = c.lex()
	default:
		err = c.Parser.Parse()
		res.Stats = c.Parser.Stats()
		res.Declarations = c.Parser.Declarations()
	}
	res.Lines = c.Lexer.Lines()
	res.Tokens = c.tokens
	res.Warnings = c.Diag.Warnings()
	res.Identifiers = c.Table.Len() - int(token.Ident)
	if err != nil {
		return res, err
	}
	if c.printer != nil {
		if err := c.printer.Flush(); err != nil {
			return res, fmt.Errorf("format output: %w", err)
		}
	}

	if c.Config.Stage == config.StageLex {
		fmt.Fprintf(c.out, "%s lexical analysis succeeded, %d lines in total!\n", c.Name, res.Lines)
	} else {
		fmt.Fprintf(c.out, "%s syntax analysis succeeded!\n", c.Name)
	}
	return res, nil
}

// Close drops the identifiers interned by this run.
func (c *Context) Close() {
	c.Table.Release()
}

func (c *Context) lex() (err error) {
	defer util.Recover(&err)
	for {
		tok := c.Lexer.Next()
		if tok.Code == token.EOF {
			return nil
		}
		c.Token(tok, parser.Plain)
	}
}

// Token implements parser.Observer.
func (c *Context) Token(tok token.Token, h parser.Hint) {
	c.tokens++
	if c.opts.Tokens != nil {
		fmt.Fprintf(c.opts.Tokens, "%4d  %-3d %-20s %s\n", tok.Line, int(tok.Code), describe(tok), tok.Raw)
	}
	if c.printer != nil {
		c.printer.Token(tok, h)
	}
}

func describe(tok token.Token) string {
	switch {
	case tok.Code.IsIdent():
		return "identifier"
	case tok.Code.IsKeyword():
		return "keyword"
	case tok.Code == token.CInt, tok.Code == token.CChar:
		return fmt.Sprintf("%s %d", tok.Code, tok.Value)
	case tok.Code.IsLiteral():
		return tok.Code.String()
	}
	return "operator"
}
