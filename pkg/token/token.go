package token

import (
	"fmt"

	mtoken "modernc.org/token"
)

// Code identifies a token. Fixed tokens use the reserved codes below;
// identifiers receive codes starting at Ident in the order they are first seen.
type Code int

const (
	Plus Code = iota
	Minus
	Star
	Divide
	Mod
	Eq
	Neq
	Lt
	Leq
	Gt
	Geq
	Assign
	PointsTo
	Dot
	And
	OpenParen
	CloseParen
	OpenBracket
	CloseBracket
	Begin
	End
	Semicolon
	Comma
	Ellipsis
	EOF

	CInt
	CChar
	CStr

	KwChar
	KwShort
	KwInt
	KwVoid
	KwStruct
	KwIf
	KwElse
	KwFor
	KwContinue
	KwBreak
	KwReturn
	KwSizeof
	KwCdecl
	KwStdcall
	KwAlign

	Ident
)

// FixedWord is one entry of the fixed-token registration table.
type FixedWord struct {
	Code     Code
	Spelling string
}

// Fixed lists the reserved tokens in registration order. Literal categories
// have no spelling, so they can never be matched by an identifier.
var Fixed = []FixedWord{
	{Plus, "+"},
	{Minus, "-"},
	{Star, "*"},
	{Divide, "/"},
	{Mod, "%"},
	{Eq, "=="},
	{Neq, "!="},
	{Lt, "<"},
	{Leq, "<="},
	{Gt, ">"},
	{Geq, ">="},
	{Assign, "="},
	{PointsTo, "->"},
	{Dot, "."},
	{And, "&"},
	{OpenParen, "("},
	{CloseParen, ")"},
	{OpenBracket, "["},
	{CloseBracket, "]"},
	{Begin, "{"},
	{End, "}"},
	{Semicolon, ";"},
	{Comma, ","},
	{Ellipsis, "..."},
	{EOF, "End_Of_File"},

	{CInt, ""},
	{CChar, ""},
	{CStr, ""},

	{KwChar, "char"},
	{KwShort, "short"},
	{KwInt, "int"},
	{KwVoid, "void"},
	{KwStruct, "struct"},
	{KwIf, "if"},
	{KwElse, "else"},
	{KwFor, "for"},
	{KwContinue, "continue"},
	{KwBreak, "break"},
	{KwReturn, "return"},
	{KwSizeof, "sizeof"},
	{KwCdecl, "__cdecl"},
	{KwStdcall, "__stdcall"},
	{KwAlign, "__align"},
}

func (c Code) IsLiteral() bool { return c >= CInt && c <= CStr }
func (c Code) IsKeyword() bool { return c >= KwChar && c <= KwAlign }
func (c Code) IsIdent() bool   { return c >= Ident }

// IsTypeSpecifier reports whether c starts a type specifier.
func (c Code) IsTypeSpecifier() bool {
	switch c {
	case KwChar, KwShort, KwInt, KwVoid, KwStruct:
		return true
	}
	return false
}

func (c Code) String() string {
	switch {
	case c < 0:
		return fmt.Sprintf("Code(%d)", int(c))
	case c == CInt:
		return "integer constant"
	case c == CChar:
		return "character constant"
	case c == CStr:
		return "string literal"
	case c < Ident:
		return Fixed[c].Spelling
	}
	return fmt.Sprintf("identifier#%d", int(c-Ident))
}

// Token is one lexical unit. Text holds the decoded spelling (escape
// sequences resolved), Raw the source form. Value is set for integer and
// character constants only.
type Token struct {
	Code  Code
	Value int64
	Text  string
	Raw   string
	Line  int
	Pos   mtoken.Pos
}
