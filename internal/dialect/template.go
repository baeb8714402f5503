package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/expr"
)

// PrecAtom is the precedence of fragments that never need parentheses:
// literals, names, placeholders, function calls and parenthesized text.
const PrecAtom = 10

// Fragment is a piece of rendered query text with the argument values its
// placeholders consume, in textual order.
type Fragment struct {
	SQL  string
	Args []any

	// Prec is the binding strength of the outermost operator in SQL.
	Prec int

	// op is the binary operator at the top of the fragment, if any.
	op expr.Operator
}

// Raw returns an atomic fragment with no arguments.
func Raw(sql string) Fragment {
	return Fragment{SQL: sql, Prec: PrecAtom}
}

func paren(f Fragment) Fragment {
	return Fragment{SQL: "(" + f.SQL + ")", Args: f.Args, Prec: PrecAtom}
}

// builder concatenates fragments, keeping argument order aligned with text.
type builder struct {
	sb   strings.Builder
	args []any
}

func (b *builder) text(s string) { b.sb.WriteString(s) }

func (b *builder) frag(f Fragment) {
	b.sb.WriteString(f.SQL)
	b.args = append(b.args, f.Args...)
}

func (b *builder) fragment() Fragment {
	return Fragment{SQL: b.sb.String(), Args: b.args, Prec: PrecAtom}
}

// Template renders a fixed number of argument fragments into text.
//
// Arguments are referenced as {0}, {1}, ... and may appear in any order, more
// than once, or not at all. Argument values follow the textual order of
// the references.
type Template struct {
	format string
	arity  int
	prec   int
	parts  []templatePart
}

type templatePart struct {
	text string
	arg  int // -1 for literal text
}

// NewTemplate parses format for a template taking exactly arity arguments.
func NewTemplate(format string, arity int) (Template, error) {
	t := Template{format: format, arity: arity, prec: PrecAtom}
	rest := format
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			t.parts = append(t.parts, templatePart{text: rest, arg: -1})
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			t.parts = append(t.parts, templatePart{text: rest, arg: -1})
			break
		}
		n, err := strconv.Atoi(rest[open+1 : open+end])
		if err != nil {
			// Not a reference; keep the brace as text.
			t.parts = append(t.parts, templatePart{text: rest[:open+1], arg: -1})
			rest = rest[open+1:]
			continue
		}
		if n < 0 || n >= arity {
			return Template{}, fmt.Errorf("template %q references {%d} but takes %d arguments", format, n, arity)
		}
		if open > 0 {
			t.parts = append(t.parts, templatePart{text: rest[:open], arg: -1})
		}
		t.parts = append(t.parts, templatePart{arg: n})
		rest = rest[open+end+1:]
	}
	return t, nil
}

// MustTemplate is NewTemplate that panics on a malformed format.
func MustTemplate(format string, arity int) Template {
	t, err := NewTemplate(format, arity)
	if err != nil {
		panic(err)
	}
	return t
}

// WithPrec returns a copy of t whose output binds at p, for templates that
// render an infix expression rather than a call.
func (t Template) WithPrec(p int) Template {
	t.prec = p
	return t
}

// Arity returns the number of arguments t takes.
func (t Template) Arity() int { return t.arity }

// IsZero reports whether t is the zero Template.
func (t Template) IsZero() bool { return t.parts == nil && t.format == "" }

// String returns the template format.
func (t Template) String() string { return t.format }

// Apply renders args into the template.
func (t Template) Apply(args []Fragment) (Fragment, error) {
	if len(args) != t.arity {
		return Fragment{}, dberr.NewInvalidExpressionError("apply template",
			fmt.Sprintf("%q expects %d arguments, got %d", t.format, t.arity, len(args)))
	}
	var b builder
	for _, p := range t.parts {
		if p.arg < 0 {
			b.text(p.text)
			continue
		}
		a := args[p.arg]
		if t.prec < PrecAtom && a.Prec <= t.prec {
			a = paren(a)
		}
		b.frag(a)
	}
	out := b.fragment()
	out.Prec = t.prec
	return out, nil
}

// EncodeFunction implements FunctionEncoder.
func (t Template) EncodeFunction(args []Fragment) (Fragment, error) {
	return t.Apply(args)
}

// FunctionEncoder renders a function call from its rendered arguments.
type FunctionEncoder interface {
	EncodeFunction(args []Fragment) (Fragment, error)
}

// Call renders NAME(arg, arg, ...) for between Min and Max arguments.
// Max < 0 means no upper bound.
type Call struct {
	Name string
	Min  int
	Max  int
}

// EncodeFunction implements FunctionEncoder.
func (c Call) EncodeFunction(args []Fragment) (Fragment, error) {
	if len(args) < c.Min || (c.Max >= 0 && len(args) > c.Max) {
		return Fragment{}, dberr.NewInvalidExpressionError("encode function",
			fmt.Sprintf("%s called with %d arguments, expects %s", c.Name, len(args), c.arityText()))
	}
	var b builder
	b.text(c.Name)
	b.text("(")
	for i, a := range args {
		if i > 0 {
			b.text(", ")
		}
		b.frag(a)
	}
	b.text(")")
	return b.fragment(), nil
}

func (c Call) arityText() string {
	switch {
	case c.Max < 0:
		return fmt.Sprintf("at least %d", c.Min)
	case c.Min == c.Max:
		return strconv.Itoa(c.Min)
	default:
		return fmt.Sprintf("%d to %d", c.Min, c.Max)
	}
}
