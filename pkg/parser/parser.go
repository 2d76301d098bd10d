package parser

import (
	"github.com/xplshn/scc/pkg/config"
	"github.com/xplshn/scc/pkg/lexer"
	"github.com/xplshn/scc/pkg/token"
	"github.com/xplshn/scc/pkg/util"
)

// StorageClass is the context a declaration appears in.
type StorageClass int

const (
	Global StorageClass = iota
	Local
	Member
)

func (sc StorageClass) String() string {
	switch sc {
	case Global:
		return "global"
	case Local:
		return "local"
	case Member:
		return "member"
	}
	return "unknown"
}

// Hint tells an Observer how an accepted token binds to its neighbours.
type Hint int

const (
	// Plain leaves layout to the token's class.
	Plain Hint = iota
	// Prefix marks a unary operator or pointer star bound to what follows.
	Prefix
	// Inline marks a ';' inside a for header, or a '}' that does not end
	// its declaration.
	Inline
)

// Observer receives every token the parser accepts, in order.
type Observer interface {
	Token(tok token.Token, h Hint)
}

// Declaration describes one declarator accepted by the parser.
type Declaration struct {
	Name       string
	Line       int
	Class      StorageClass
	Pointers   int
	CallConv   token.Code
	Align      int64   // 1, 2 or 4 when __align is present
	Dims       []int64 // -1 for an unsized dimension
	Function   bool
	Params     int
	Variadic   bool
	Definition bool
}

// Stats counts what a parse accepted.
type Stats struct {
	Functions    int
	Declarations int
	Members      int
	Statements   int
}

// Parser is a one-token-lookahead recursive descender over a Lexer.
// Every method named after a grammar production starts on the first token
// of that production and leaves the cursor on the token after it.
type Parser struct {
	lex  *lexer.Lexer
	diag *util.Reporter
	cfg  *config.Config
	tok  token.Token
	obs  Observer

	decls []Declaration
	stats Stats
}

func New(lex *lexer.Lexer, diag *util.Reporter, cfg *config.Config) *Parser {
	return &Parser{lex: lex, diag: diag, cfg: cfg}
}

func (p *Parser) SetObserver(o Observer) { p.obs = o }

// Declarations returns the named declarations accepted so far. Parameters
// are counted on their function, not listed.
func (p *Parser) Declarations() []Declaration { return p.decls }

func (p *Parser) Stats() Stats { return p.stats }

// Parse checks a whole translation unit. The first error ends the parse.
func (p *Parser) Parse() (err error) {
	defer util.Recover(&err)
	p.tok = p.lex.Next()
	p.translationUnit()
	return nil
}

// Parser helpers

func (p *Parser) next(h Hint) {
	if p.obs != nil {
		p.obs.Token(p.tok, h)
	}
	p.tok = p.lex.Next()
}

func (p *Parser) check(c token.Code) bool { return p.tok.Code == c }

func (p *Parser) match(c token.Code, h Hint) bool {
	if !p.check(c) {
		return false
	}
	p.next(h)
	return true
}

// expect consumes c or fails naming its spelling.
func (p *Parser) expect(c token.Code, h Hint) {
	if !p.match(c, h) {
		p.errorf("missing '%s'", p.lex.Table().Spelling(c))
	}
}

// missing fails naming the category that was expected.
func (p *Parser) missing(what string) {
	p.errorf("missing %s", what)
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diag.ErrorAt(p.tok.Pos, p.tok.Line, format, args...)
}

// Declarations

func (p *Parser) translationUnit() {
	for !p.check(token.EOF) {
		p.declaration(Global)
	}
}

// declaration handles external, local and member declarations. The shared
// prefix of a declaration and a function definition is read once; a '{'
// after a declarator decides for the definition.
func (p *Parser) declaration(sc StorageClass) {
	p.typeSpecifier()
	if sc != Member && p.match(token.Semicolon, Plain) {
		p.stats.Declarations++
		return
	}
	for {
		d := p.declarator()
		d.Class = sc
		if p.check(token.Begin) && sc != Member {
			if sc == Local {
				p.errorf("nested function definitions are not supported")
			}
			d.Definition = true
			p.decls = append(p.decls, d)
			p.funcBody()
			return
		}
		p.decls = append(p.decls, d)
		if sc == Member {
			p.stats.Members++
		} else {
			p.stats.Declarations++
		}
		if p.check(token.Assign) {
			if sc == Member {
				p.errorf("member '%s' cannot have an initializer", d.Name)
			}
			p.next(Plain)
			p.initializer()
		}
		if !p.match(token.Comma, Plain) {
			break
		}
	}
	p.expect(token.Semicolon, Plain)
}

func (p *Parser) typeSpecifier() {
	switch p.tok.Code {
	case token.KwChar, token.KwShort, token.KwInt, token.KwVoid:
		p.next(Plain)
	case token.KwStruct:
		p.structSpecifier()
	default:
		p.missing("type specifier")
	}
}

func (p *Parser) structSpecifier() {
	p.next(Plain)
	if !p.tok.Code.IsIdent() {
		if p.tok.Code.IsKeyword() {
			p.errorf("keyword '%s' cannot name a struct", p.tok.Text)
		} else {
			p.missing("struct name")
		}
	}
	p.next(Plain)
	if p.check(token.Begin) {
		p.structDeclarationList()
	}
}

func (p *Parser) structDeclarationList() {
	p.next(Plain)
	for !p.check(token.End) && !p.check(token.EOF) {
		p.declaration(Member)
	}
	p.expect(token.End, Inline)
}

func (p *Parser) declarator() Declaration {
	var d Declaration
	for p.match(token.Star, Prefix) {
		d.Pointers++
	}
	d.CallConv = p.callingConvention()
	d.Align = p.structMemberAlignment()
	p.directDeclarator(&d)
	return d
}

// callingConvention returns the convention keyword, __cdecl if there is none.
func (p *Parser) callingConvention() token.Code {
	if !p.check(token.KwCdecl) && !p.check(token.KwStdcall) {
		return token.KwCdecl
	}
	if !p.cfg.IsFeatureEnabled(config.FeatCallConv) {
		p.errorf("calling convention '%s' is not enabled", p.tok.Text)
	}
	cc := p.tok.Code
	p.next(Plain)
	return cc
}

// structMemberAlignment returns the alignment requested by __align, 0 if
// there is none. Any integer constant is accepted; values other than 1, 2
// and 4 fall back to 1.
func (p *Parser) structMemberAlignment() int64 {
	if !p.check(token.KwAlign) {
		return 0
	}
	if !p.cfg.IsFeatureEnabled(config.FeatAlign) {
		p.errorf("'__align' is not enabled")
	}
	p.next(Plain)
	p.expect(token.OpenParen, Plain)
	if !p.check(token.CInt) {
		p.missing("integer constant")
	}
	n := p.tok.Value
	p.next(Plain)
	p.expect(token.CloseParen, Plain)
	switch n {
	case 1, 2, 4:
		return n
	}
	return 1
}

func (p *Parser) directDeclarator(d *Declaration) {
	if !p.tok.Code.IsIdent() {
		p.missing("identifier")
	}
	d.Name, d.Line = p.tok.Text, p.tok.Line
	p.next(Plain)
	p.directDeclaratorPostfix(d)
}

func (p *Parser) directDeclaratorPostfix(d *Declaration) {
	for {
		switch p.tok.Code {
		case token.OpenBracket:
			p.next(Plain)
			n := int64(-1)
			if p.check(token.CInt) {
				n = p.tok.Value
				p.next(Plain)
			}
			p.expect(token.CloseBracket, Plain)
			d.Dims = append(d.Dims, n)
		case token.OpenParen:
			p.parameterTypeList(d)
		default:
			return
		}
	}
}

// parameterTypeList reads a parenthesized parameter list. '...' may only
// follow a named parameter.
func (p *Parser) parameterTypeList(d *Declaration) {
	d.Function = true
	p.next(Plain)
	for !p.check(token.CloseParen) {
		p.typeSpecifier()
		p.declarator()
		d.Params++
		if p.check(token.CloseParen) {
			break
		}
		p.expect(token.Comma, Plain)
		if p.match(token.Ellipsis, Plain) {
			d.Variadic = true
			break
		}
	}
	p.expect(token.CloseParen, Plain)
}

func (p *Parser) funcBody() {
	p.stats.Functions++
	p.compoundStatement()
}

func (p *Parser) initializer() {
	p.assignmentExpression()
}

// Statements

func (p *Parser) compoundStatement() {
	p.expect(token.Begin, Plain)
	for p.tok.Code.IsTypeSpecifier() {
		p.declaration(Local)
	}
	for !p.check(token.End) && !p.check(token.EOF) {
		p.statement()
	}
	p.expect(token.End, Plain)
}

func (p *Parser) statement() {
	p.stats.Statements++
	switch p.tok.Code {
	case token.Begin:
		p.compoundStatement()
	case token.KwIf:
		p.ifStatement()
	case token.KwFor:
		p.forStatement()
	case token.KwBreak, token.KwContinue:
		p.next(Plain)
		p.expect(token.Semicolon, Plain)
	case token.KwReturn:
		p.next(Plain)
		if !p.check(token.Semicolon) {
			p.expression()
		}
		p.expect(token.Semicolon, Plain)
	default:
		p.expressionStatement()
	}
}

func (p *Parser) ifStatement() {
	p.next(Plain)
	p.expect(token.OpenParen, Plain)
	p.expression()
	p.expect(token.CloseParen, Plain)
	p.statement()
	if p.match(token.KwElse, Plain) {
		p.statement()
	}
}

func (p *Parser) forStatement() {
	p.next(Plain)
	p.expect(token.OpenParen, Plain)
	if !p.check(token.Semicolon) {
		p.expression()
	}
	p.expect(token.Semicolon, Inline)
	if !p.check(token.Semicolon) {
		p.expression()
	}
	p.expect(token.Semicolon, Inline)
	if !p.check(token.CloseParen) {
		p.expression()
	}
	p.expect(token.CloseParen, Plain)
	p.statement()
}

func (p *Parser) expressionStatement() {
	if !p.check(token.Semicolon) {
		p.expression()
	}
	p.expect(token.Semicolon, Plain)
}

// Expressions, lowest precedence first

func (p *Parser) expression() {
	p.assignmentExpression()
	for p.match(token.Comma, Plain) {
		p.assignmentExpression()
	}
}

// assignmentExpression accepts a single right-recursive '=' after an
// equality expression, so the left side is not restricted to unary forms.
func (p *Parser) assignmentExpression() {
	p.equalityExpression()
	if p.match(token.Assign, Plain) {
		p.assignmentExpression()
	}
}

func (p *Parser) equalityExpression() {
	p.relationalExpression()
	for p.match(token.Eq, Plain) || p.match(token.Neq, Plain) {
		p.relationalExpression()
	}
}

func (p *Parser) relationalExpression() {
	p.additiveExpression()
	for {
		switch p.tok.Code {
		case token.Lt, token.Leq, token.Gt, token.Geq:
			p.next(Plain)
			p.additiveExpression()
		default:
			return
		}
	}
}

func (p *Parser) additiveExpression() {
	p.multiplicativeExpression()
	for p.match(token.Plus, Plain) || p.match(token.Minus, Plain) {
		p.multiplicativeExpression()
	}
}

func (p *Parser) multiplicativeExpression() {
	p.unaryExpression()
	for {
		switch p.tok.Code {
		case token.Star, token.Divide, token.Mod:
			p.next(Plain)
			p.unaryExpression()
		default:
			return
		}
	}
}

func (p *Parser) unaryExpression() {
	switch p.tok.Code {
	case token.And, token.Star, token.Plus, token.Minus:
		p.next(Prefix)
		p.unaryExpression()
	case token.KwSizeof:
		p.sizeofExpression()
	default:
		p.postfixExpression()
	}
}

func (p *Parser) sizeofExpression() {
	p.next(Plain)
	p.expect(token.OpenParen, Plain)
	p.typeSpecifier()
	p.expect(token.CloseParen, Plain)
}

func (p *Parser) postfixExpression() {
	p.primaryExpression()
	for {
		switch p.tok.Code {
		case token.OpenBracket:
			p.next(Plain)
			p.expression()
			p.expect(token.CloseBracket, Plain)
		case token.Dot, token.PointsTo:
			p.next(Plain)
			if !p.tok.Code.IsIdent() {
				p.missing("member name")
			}
			p.next(Plain)
		case token.OpenParen:
			p.argumentExpressionList()
		default:
			return
		}
	}
}

func (p *Parser) argumentExpressionList() {
	p.next(Plain)
	if !p.check(token.CloseParen) {
		p.assignmentExpression()
		for p.match(token.Comma, Plain) {
			p.assignmentExpression()
		}
	}
	p.expect(token.CloseParen, Plain)
}

func (p *Parser) primaryExpression() {
	switch {
	case p.tok.Code.IsLiteral(), p.tok.Code.IsIdent():
		p.next(Plain)
	case p.check(token.OpenParen):
		p.next(Plain)
		p.expression()
		p.expect(token.CloseParen, Plain)
	default:
		p.missing("identifier or constant")
	}
}
