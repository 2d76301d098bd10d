// Package intern maps token spellings to canonical words. Fixed tokens and
// identifiers share one table, so keyword recognition is a lookup like any
// other and every distinct spelling owns exactly one code.
package intern

import (
	"github.com/xplshn/scc/pkg/buffer"
	"github.com/xplshn/scc/pkg/token"
)

// Buckets is the number of hash chains. It only affects chain length.
const Buckets = 1024

const initialWords = 50

// Symbol is reserved for symbol-table linkage by later phases.
type Symbol struct{}

// Word is the interned record for one spelling. Its Code is its index in
// the master table.
type Word struct {
	Code      token.Code
	Spelling  string
	SymStruct *Symbol
	SymIdent  *Symbol
	next      *Word
}

type Table struct {
	words   *buffer.Buffer[*Word]
	buckets [Buckets]*Word
}

// Hash is the ELF hash of s folded into Buckets.
func Hash(s string) int {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h<<4 + uint32(s[i])
		if g := h & 0xf0000000; g != 0 {
			h ^= g >> 24
			h &^= g
		}
	}
	return int(h % Buckets)
}

// NewTable returns a table holding every fixed token at its reserved code.
func NewTable() *Table {
	t := &Table{words: buffer.New[*Word](initialWords)}
	for _, fw := range token.Fixed {
		t.DirectInsert(&Word{Code: fw.Code, Spelling: fw.Spelling})
	}
	return t
}

// DirectInsert appends w to the master table and prepends it to its chain
// without checking for duplicates. It is meant for fixed tokens only.
func (t *Table) DirectInsert(w *Word) *Word {
	t.words.Append(w)
	k := Hash(w.Spelling)
	w.next = t.buckets[k]
	t.buckets[k] = w
	return w
}

// Find returns the first word in s's chain spelled s.
func (t *Table) Find(s string) (*Word, bool) {
	for w := t.buckets[Hash(s)]; w != nil; w = w.next {
		if w.Spelling == s {
			return w, true
		}
	}
	return nil, false
}

// Insert returns the word spelled s, creating it with the next free code if
// the spelling is new.
func (t *Table) Insert(s string) *Word {
	if w, ok := t.Find(s); ok {
		return w
	}
	w := &Word{Code: token.Code(t.words.Len()), Spelling: s}
	t.DirectInsert(w)
	return w
}

func (t *Table) Len() int { return t.words.Len() }

// Word returns the word with the given code, or nil.
func (t *Table) Word(code token.Code) *Word {
	if code < 0 || int(code) >= t.words.Len() {
		return nil
	}
	return t.words.At(int(code))
}

// Spelling returns the display text of code. Literal categories and unknown
// codes have none.
func (t *Table) Spelling(code token.Code) string {
	if w := t.Word(code); w != nil {
		return w.Spelling
	}
	return ""
}

// Identifiers returns the words created after the fixed prefix, in code order.
func (t *Table) Identifiers() []*Word {
	all := t.words.Slice()
	if len(all) <= int(token.Ident) {
		return nil
	}
	return append([]*Word(nil), all[token.Ident:]...)
}

// Release drops every identifier, leaving the fixed tokens in place.
// Identifiers are always prepended after the fixed tokens, so they form a
// prefix of each chain.
func (t *Table) Release() {
	for i, w := range t.buckets {
		for w != nil && w.Code >= token.Ident {
			w = w.next
		}
		t.buckets[i] = w
	}
	t.words.Truncate(int(token.Ident))
}
