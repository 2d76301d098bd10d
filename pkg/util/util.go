package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	mtoken "modernc.org/token"

	"github.com/xplshn/scc/pkg/config"
)

type Severity int

const (
	SevWarning Severity = iota
	SevError
)

func (s Severity) String() string {
	if s == SevWarning {
		return "WARNING"
	}
	return "ERROR"
}

// StageCompile tags every diagnostic raised by the front end.
const StageCompile = "COMPILE"

// Diagnostic is one formatted message.
type Diagnostic struct {
	Severity Severity
	Stage    string
	File     string
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s][%s]%s(line:%d): %s!", d.Severity, d.Stage, d.File, d.Line, d.Message)
}

// FatalError is returned by the entry points after an error diagnostic has
// been printed.
type FatalError struct {
	Diag Diagnostic
	link bool
}

func (e *FatalError) Error() string {
	if e.link {
		return fmt.Sprintf("LNK: %s!", e.Diag.Message)
	}
	return e.Diag.String()
}

// bailout carries a fatal diagnostic up the stack to Recover.
type bailout struct{ err *FatalError }

// Reporter prints diagnostics for one source file.
type Reporter struct {
	out      io.Writer
	name     string
	cfg      *config.Config
	file     *mtoken.File
	src      []byte
	warnings int
}

func NewReporter(out io.Writer, name string, cfg *config.Config) *Reporter {
	return &Reporter{out: out, name: name, cfg: cfg}
}

// SetSource attaches the line table and content used for the caret echo.
func (r *Reporter) SetSource(file *mtoken.File, src []byte) {
	r.file, r.src = file, src
}

func (r *Reporter) Name() string  { return r.name }
func (r *Reporter) Warnings() int { return r.warnings }

// Warn prints a warning if wt is enabled. Execution continues.
func (r *Reporter) Warn(wt config.Warning, line int, format string, args ...interface{}) {
	if !r.cfg.IsWarningEnabled(wt) {
		return
	}
	r.warnings++
	d := Diagnostic{SevWarning, StageCompile, r.name, line, fmt.Sprintf(format, args...)}
	fmt.Fprintln(r.out, d)
}

// Error prints an error and abandons the compilation. It never returns
// normally; the caller's entry point must defer Recover.
func (r *Reporter) Error(line int, format string, args ...interface{}) {
	r.ErrorAt(mtoken.NoPos, line, format, args...)
}

// ErrorAt is Error with a source position for the caret echo.
func (r *Reporter) ErrorAt(pos mtoken.Pos, line int, format string, args ...interface{}) {
	d := Diagnostic{SevError, StageCompile, r.name, line, fmt.Sprintf(format, args...)}
	fmt.Fprintln(r.out, d)
	if r.cfg.Caret && pos.IsValid() {
		r.printErrorLine(pos)
	}
	panic(bailout{&FatalError{Diag: d}})
}

// printErrorLine prints the source line holding pos and a caret under it.
func (r *Reporter) printErrorLine(pos mtoken.Pos) {
	if r.file == nil {
		return
	}
	p := r.file.Position(pos)
	if p.Line < 1 || p.Line > r.file.LineCount() {
		return
	}
	start := r.file.Offset(r.file.LineStart(p.Line))
	line := r.src[start:]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fmt.Fprintf(r.out, "  %s\n", strings.TrimRight(string(line), "\r"))
	fmt.Fprintf(r.out, "  %s^\n", strings.Repeat(" ", max(p.Column-1, 0)))
}

// Recover converts an error diagnostic raised below it into *FatalError.
// Other panics, such as failed buffer growth, are not diagnostics and are
// re-raised.
//
//	func (p *Parser) Parse() (err error) {
//		defer util.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*errp = b.err
	}
}

// IsFatal reports whether err came from an error diagnostic.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// LinkError prints a link stage diagnostic and returns it as an error.
func LinkError(w io.Writer, format string, args ...interface{}) error {
	err := &FatalError{Diag: Diagnostic{Severity: SevError, Stage: "LNK", Message: fmt.Sprintf(format, args...)}, link: true}
	fmt.Fprintln(w, err.Error())
	return err
}
