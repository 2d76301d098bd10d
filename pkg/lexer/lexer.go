package lexer

import (
	"strconv"

	mtoken "modernc.org/token"

	"github.com/xplshn/scc/pkg/buffer"
	"github.com/xplshn/scc/pkg/config"
	"github.com/xplshn/scc/pkg/intern"
	"github.com/xplshn/scc/pkg/token"
	"github.com/xplshn/scc/pkg/util"
)

// EOF is the value of the current character once the input is exhausted.
const EOF = -1

type Lexer struct {
	src   []byte
	pos   int
	ch    int
	line  int
	file  *mtoken.File
	table *intern.Table
	diag  *util.Reporter
	cfg   *config.Config

	// Scratch buffers for the token being scanned: the decoded text and the
	// source form with escapes and delimiters kept.
	text buffer.Chars
	raw  buffer.Chars

	tok   token.Code
	value int64
}

// New primes the character cursor on src. Identifiers are interned into
// table; diagnostics go to diag.
func New(name string, src []byte, table *intern.Table, diag *util.Reporter, cfg *config.Config) *Lexer {
	l := &Lexer{
		src: src, pos: -1, line: 1,
		file:  mtoken.NewFile(name, len(src)),
		table: table, diag: diag, cfg: cfg,
	}
	diag.SetSource(l.file, src)
	l.getch()
	return l
}

// Next scans one token. Lexical errors do not return: they unwind through
// the reporter to the caller's util.Recover.
func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	l.text.Reset()
	l.raw.Reset()
	l.value = 0
	start, line := l.pos, l.line

	switch {
	case isLetter(l.ch):
		l.identifierOrKeyword()
	case isDigit(l.ch):
		l.numberLiteral()
	case l.ch == '"' || l.ch == '\'':
		l.quotedLiteral(byte(l.ch))
	case l.ch == EOF:
		l.tok = token.EOF
	default:
		l.operator()
	}

	if !l.tok.IsLiteral() {
		l.raw.AppendString(string(l.src[start:l.pos]))
		if l.text.Len() == 0 {
			l.text.AppendString(l.table.Spelling(l.tok))
		}
	}
	return token.Token{
		Code:  l.tok,
		Value: l.value,
		Text:  l.text.String(),
		Raw:   l.raw.String(),
		Line:  line,
		Pos:   l.file.Pos(start),
	}
}

// All scans the remaining input. The returned slice ends with the EOF token
// unless err is set.
func (l *Lexer) All() (toks []token.Token, err error) {
	defer util.Recover(&err)
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Code == token.EOF {
			return toks, nil
		}
	}
}

// Text returns the decoded text of the last token.
func (l *Lexer) Text() string { return l.text.String() }

// Raw returns the source form of the last token.
func (l *Lexer) Raw() string { return l.raw.String() }

// Line is the current line number.
func (l *Lexer) Line() int { return l.line }

// Lines is the number of lines seen so far; a final line terminator does not
// open a new line.
func (l *Lexer) Lines() int { return l.file.LineCount() }

func (l *Lexer) File() *mtoken.File { return l.file }

func (l *Lexer) Table() *intern.Table { return l.table }

// getch moves to the next character, counting the line terminator it leaves.
func (l *Lexer) getch() {
	if l.ch == '\n' {
		l.line++
		l.file.AddLine(l.pos + 1)
	}
	if l.pos < len(l.src) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		l.ch = EOF
		return
	}
	l.ch = int(l.src[l.pos])
}

func (l *Lexer) peek() int {
	if l.pos+1 >= len(l.src) {
		return EOF
	}
	return int(l.src[l.pos+1])
}

func (l *Lexer) match(expected int) bool {
	if l.ch != expected {
		return false
	}
	l.getch()
	return true
}

func (l *Lexer) errorAt(offset int, format string, args ...interface{}) {
	l.diag.ErrorAt(l.file.Pos(min(offset, len(l.src))), l.line, format, args...)
}

func (l *Lexer) warn(wt config.Warning, format string, args ...interface{}) {
	l.diag.Warn(wt, l.line, format, args...)
}

func isLetter(ch int) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isDigit(ch int) bool { return ch >= '0' && ch <= '9' }

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' || l.ch == '\v' || l.ch == '\f':
			l.getch()
		case l.ch == '/' && l.peek() == '*':
			l.blockComment()
		case l.ch == '/' && l.peek() == '/' && l.cfg.IsFeatureEnabled(config.FeatCComments):
			l.lineComment()
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	start := l.pos
	l.getch()
	l.getch()
	for {
		switch l.ch {
		case EOF:
			l.errorAt(start, "unterminated comment")
			return
		case '*':
			// A run of stars may end in the closing slash.
			l.getch()
			if l.match('/') {
				return
			}
		default:
			l.getch()
		}
	}
}

func (l *Lexer) lineComment() {
	for l.ch != '\n' && l.ch != EOF {
		l.getch()
	}
}

func (l *Lexer) identifierOrKeyword() {
	for isLetter(l.ch) || isDigit(l.ch) {
		l.text.AppendByte(byte(l.ch))
		l.getch()
	}
	l.tok = l.table.Insert(l.text.String()).Code
}

// numberLiteral scans digits with an optional fraction. The value is the
// integer part; the fraction is consumed and dropped.
func (l *Lexer) numberLiteral() {
	for isDigit(l.ch) {
		l.text.AppendByte(byte(l.ch))
		l.getch()
	}
	intLen := l.text.Len()
	if l.ch == '.' {
		l.text.AppendByte('.')
		l.getch()
		for isDigit(l.ch) {
			l.text.AppendByte(byte(l.ch))
			l.getch()
		}
	}
	l.raw.AppendString(l.text.String())
	l.tok = token.CInt

	digits := string(l.text.Bytes()[:intLen])
	val, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// ParseInt saturates on overflow.
		l.warn(config.WarnOverflow, "integer constant '%s' is too large", digits)
	}
	l.value = val
	if l.text.Len() > intLen {
		l.warn(config.WarnFraction, "fractional part of '%s' is truncated", l.text.String())
	}
}

var escapes = map[int]byte{
	'0': 0, 'a': '\a', 'b': '\b', 't': '\t', 'n': '\n', 'v': '\v', 'f': '\f', 'r': '\r',
	'"': '"', '\'': '\'', '\\': '\\',
}

// quotedLiteral scans a string or character constant ending in sep.
func (l *Lexer) quotedLiteral(sep byte) {
	start := l.pos
	l.raw.AppendByte(sep)
	l.getch()
	for {
		switch l.ch {
		case int(sep):
			l.raw.AppendByte(sep)
			l.getch()
			l.finishQuoted(sep)
			return
		case EOF:
			l.errorAt(start, "missing closing quote %c", sep)
			return
		case '\\':
			l.raw.AppendByte('\\')
			l.getch()
			if l.ch == EOF {
				l.errorAt(start, "missing closing quote %c", sep)
				return
			}
			l.text.AppendByte(l.decodeEscape(l.ch))
			l.raw.AppendByte(byte(l.ch))
			l.getch()
		default:
			l.text.AppendByte(byte(l.ch))
			l.raw.AppendByte(byte(l.ch))
			l.getch()
		}
	}
}

func (l *Lexer) decodeEscape(c int) byte {
	if v, ok := escapes[c]; ok {
		return v
	}
	if c >= 0x20 && c < 0x7f {
		l.warn(config.WarnUnrecognizedEscape, "illegal escape character: '\\%c'", c)
	} else {
		l.warn(config.WarnUnrecognizedEscape, "illegal escape character: '\\0x%x'", c)
	}
	return byte(c)
}

func (l *Lexer) finishQuoted(sep byte) {
	if sep == '"' {
		l.tok = token.CStr
		return
	}
	l.tok = token.CChar
	switch l.text.Len() {
	case 0:
		l.warn(config.WarnExtra, "empty character constant")
	case 1:
	default:
		l.warn(config.WarnExtra, "multi-character character constant %s", l.raw.String())
	}
	if l.text.Len() > 0 {
		l.value = int64(l.text.At(0))
	}
}

func (l *Lexer) matchThen(expected int, thenCode, elseCode token.Code) token.Code {
	if l.match(expected) {
		return thenCode
	}
	return elseCode
}

func (l *Lexer) operator() {
	start, ch := l.pos, l.ch
	l.getch()
	switch ch {
	case '+':
		l.tok = token.Plus
	case '*':
		l.tok = token.Star
	case '/':
		l.tok = token.Divide
	case '%':
		l.tok = token.Mod
	case '&':
		l.tok = token.And
	case ';':
		l.tok = token.Semicolon
	case ',':
		l.tok = token.Comma
	case '(':
		l.tok = token.OpenParen
	case ')':
		l.tok = token.CloseParen
	case '[':
		l.tok = token.OpenBracket
	case ']':
		l.tok = token.CloseBracket
	case '{':
		l.tok = token.Begin
	case '}':
		l.tok = token.End
	case '-':
		l.tok = l.matchThen('>', token.PointsTo, token.Minus)
	case '=':
		l.tok = l.matchThen('=', token.Eq, token.Assign)
	case '<':
		l.tok = l.matchThen('=', token.Leq, token.Lt)
	case '>':
		l.tok = l.matchThen('=', token.Geq, token.Gt)
	case '!':
		if !l.match('=') {
			l.errorAt(start, "unsupported operator '!'")
		}
		l.tok = token.Neq
	case '.':
		if !l.match('.') {
			l.tok = token.Dot
			break
		}
		if !l.match('.') {
			l.errorAt(start, "'..' is not an operator, did you mean '...'")
		}
		l.tok = token.Ellipsis
	default:
		l.errorAt(start, "unrecognized character: \\x%02x", ch)
	}
}
