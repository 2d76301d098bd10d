// Package format re-prints an accepted token stream with syntax-directed
// layout: one statement per line, braces driving indentation.
package format

import (
	"io"

	"github.com/xplshn/scc/pkg/cli"
	"github.com/xplshn/scc/pkg/parser"
	"github.com/xplshn/scc/pkg/token"
)

const (
	cKeyword = "\x1b[1;94m"
	cNumber  = "\x1b[95m"
	cString  = "\x1b[92m"
	cNone    = "\x1b[0m"
)

// Printer implements parser.Observer. Fed directly from a lexer with
// parser.Plain hints it lays out by token class alone.
type Printer struct {
	w      io.Writer
	color  bool
	indent *cli.IndentState

	prev     token.Token
	prevHint parser.Hint
	started  bool
	bol      bool // at the beginning of a line
	pending  bool // a line break is owed before the next token
	err      error
}

func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color, indent: cli.NewIndentState(4), bol: true}
}

func (p *Printer) Token(tok token.Token, h parser.Hint) {
	if tok.Code == token.EOF {
		return
	}
	if tok.Code == token.End {
		p.indent.Pop()
	}
	if p.pending {
		p.pending = false
		if !p.hugsClosingBrace(tok) {
			p.newline()
		}
	}
	if tok.Code == token.End && !p.bol {
		p.newline()
	}

	switch {
	case p.bol:
		p.write(p.indent.Current())
	case p.space(tok):
		p.write(" ")
	}
	p.writeToken(tok)
	p.bol = false

	switch tok.Code {
	case token.Begin:
		p.indent.Push()
		p.pending = true
	case token.End, token.Semicolon:
		p.pending = h != parser.Inline
	}
	p.prev, p.prevHint, p.started = tok, h, true
}

// Flush ends the last line and returns the first write error, if any.
func (p *Printer) Flush() error {
	if p.started && !p.bol {
		p.newline()
	}
	p.pending = false
	return p.err
}

// hugsClosingBrace reports whether tok stays on the line of the '}' before it.
func (p *Printer) hugsClosingBrace(tok token.Token) bool {
	if p.prev.Code != token.End {
		return false
	}
	return tok.Code == token.Semicolon || tok.Code == token.Comma || tok.Code == token.KwElse
}

func (p *Printer) space(tok token.Token) bool {
	prev := p.prev.Code
	switch tok.Code {
	case token.Semicolon, token.Comma, token.CloseParen, token.CloseBracket,
		token.OpenBracket, token.Dot, token.PointsTo:
		return false
	case token.OpenParen:
		switch {
		case prev.IsIdent(), prev == token.CloseParen, prev == token.CloseBracket,
			prev == token.OpenParen, prev == token.KwSizeof, prev == token.KwAlign:
			return false
		}
	}
	switch prev {
	case token.OpenParen, token.OpenBracket, token.Dot, token.PointsTo:
		return false
	}
	return p.prevHint != parser.Prefix
}

func (p *Printer) newline() {
	p.write("\n")
	p.bol = true
}

func (p *Printer) writeToken(tok token.Token) {
	text := tok.Raw
	if !p.color {
		p.write(text)
		return
	}
	switch {
	case tok.Code.IsKeyword():
		p.write(cKeyword + text + cNone)
	case tok.Code == token.CInt:
		p.write(cNumber + text + cNone)
	case tok.Code == token.CChar, tok.Code == token.CStr:
		p.write(cString + text + cNone)
	default:
		p.write(text)
	}
}

func (p *Printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}
