package parser

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/exp/ebnf"
)

//go:embed grammar.ebnf
var grammarSource string

// Start is the grammar's start production.
const Start = "TranslationUnit"

// Grammar returns the accepted language as EBNF productions. Upper-case
// productions are the ones the parser implements, one method each; the
// lower-case ones are recognized by the lexer.
func Grammar() (ebnf.Grammar, error) {
	g, err := ebnf.Parse("grammar.ebnf", strings.NewReader(grammarSource))
	if err != nil {
		return nil, err
	}
	if err := ebnf.Verify(g, Start); err != nil {
		return nil, err
	}
	return g, nil
}

// PrintGrammar writes g with productions sorted by name.
func PrintGrammar(w io.Writer, g ebnf.Grammar) {
	var names []string
	for k := range g {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		p := g[k]
		fmt.Fprintf(w, "%s = ", p.Name.String)
		printExpression(w, p.Expr)
		fmt.Fprintf(w, " .\n")
	}
}

func printExpression(w io.Writer, e ebnf.Expression) {
	switch x := e.(type) {
	case ebnf.Sequence:
		for i, v := range x {
			if i != 0 {
				fmt.Fprintf(w, " ")
			}
			printExpression(w, v)
		}
	case ebnf.Alternative:
		for i, v := range x {
			if i != 0 {
				fmt.Fprintf(w, " | ")
			}
			printExpression(w, v)
		}
	case *ebnf.Name:
		fmt.Fprintf(w, "%s", x.String)
	case *ebnf.Token:
		fmt.Fprintf(w, "%q", x.String)
	case *ebnf.Range:
		printExpression(w, x.Begin)
		fmt.Fprintf(w, " … ")
		printExpression(w, x.End)
	case *ebnf.Group:
		fmt.Fprintf(w, "( ")
		printExpression(w, x.Body)
		fmt.Fprintf(w, " )")
	case *ebnf.Option:
		fmt.Fprintf(w, "[ ")
		printExpression(w, x.Body)
		fmt.Fprintf(w, " ]")
	case *ebnf.Repetition:
		fmt.Fprintf(w, "{ ")
		printExpression(w, x.Body)
		fmt.Fprintf(w, " }")
	case nil:
	default:
		panic(fmt.Sprintf("unexpected expression %T", x))
	}
}

func isLexical(name string) bool { return name[0] < 'A' || name[0] > 'Z' }

// LeftRecursive returns every cycle of syntactic productions that can
// derive themselves without consuming a token. A recursive-descent parser
// for a grammar with such a cycle would not terminate.
func LeftRecursive(g ebnf.Grammar) [][]string {
	null := nullables(g)
	edges := map[string][]string{}
	for name, p := range g {
		if !isLexical(name) {
			leading(p.Expr, null, func(n string) { edges[name] = append(edges[name], n) })
		}
	}

	var names []string
	for name := range edges {
		names = append(names, name)
	}
	sort.Strings(names)

	var cycles [][]string
	for _, start := range names {
		visited := map[string]bool{}
		var path []string
		var visit func(string) bool
		visit = func(n string) bool {
			path = append(path, n)
			defer func() { path = path[:len(path)-1] }()
			for _, m := range edges[n] {
				if m == start {
					cycles = append(cycles, append(append([]string(nil), path...), m))
					return true
				}
				if !visited[m] {
					visited[m] = true
					if visit(m) {
						return true
					}
				}
			}
			return false
		}
		visit(start)
	}
	return cycles
}

// nullables computes the syntactic productions that can derive the empty
// string.
func nullables(g ebnf.Grammar) map[string]bool {
	null := map[string]bool{}
	for changed := true; changed; {
		changed = false
		for name, p := range g {
			if !null[name] && !isLexical(name) && leading(p.Expr, null, func(string) {}) {
				null[name] = true
				changed = true
			}
		}
	}
	return null
}

// leading calls emit for each syntactic name that can start e and reports
// whether e can be empty.
func leading(e ebnf.Expression, null map[string]bool, emit func(string)) bool {
	switch x := e.(type) {
	case nil:
		return true
	case *ebnf.Name:
		if isLexical(x.String) {
			return false
		}
		emit(x.String)
		return null[x.String]
	case *ebnf.Token:
		return x.String == ""
	case *ebnf.Range:
		return false
	case ebnf.Sequence:
		for _, v := range x {
			if !leading(v, null, emit) {
				return false
			}
		}
		return true
	case ebnf.Alternative:
		empty := false
		for _, v := range x {
			if leading(v, null, emit) {
				empty = true
			}
		}
		return empty
	case *ebnf.Group:
		return leading(x.Body, null, emit)
	case *ebnf.Option:
		leading(x.Body, null, emit)
		return true
	case *ebnf.Repetition:
		leading(x.Body, null, emit)
		return true
	}
	return false
}
