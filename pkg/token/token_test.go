package token

import "testing"

func TestFixedTableIsIndexedByCode(t *testing.T) {
	if len(Fixed) != int(Ident) {
		t.Fatalf("len(Fixed) = %d, want %d", len(Fixed), Ident)
	}
	for i, w := range Fixed {
		if int(w.Code) != i {
			t.Errorf("Fixed[%d].Code = %d", i, w.Code)
		}
	}
}

func TestCodeClasses(t *testing.T) {
	tests := []struct {
		code                   Code
		literal, keyword, name bool
	}{
		{Plus, false, false, false},
		{CStr, true, false, false},
		{KwAlign, false, true, false},
		{Ident, false, false, true},
		{Ident + 7, false, false, true},
	}
	for _, tt := range tests {
		if got := tt.code.IsLiteral(); got != tt.literal {
			t.Errorf("%v.IsLiteral() = %v", tt.code, got)
		}
		if got := tt.code.IsKeyword(); got != tt.keyword {
			t.Errorf("%v.IsKeyword() = %v", tt.code, got)
		}
		if got := tt.code.IsIdent(); got != tt.name {
			t.Errorf("%v.IsIdent() = %v", tt.code, got)
		}
	}
}

func TestCodeString(t *testing.T) {
	for code, want := range map[Code]string{
		Ellipsis: "...",
		KwStruct: "struct",
		CInt:     "integer constant",
		Ident:    "identifier#0",
	} {
		if got := code.String(); got != want {
			t.Errorf("Code(%d).String() = %q, want %q", int(code), got, want)
		}
	}
}
