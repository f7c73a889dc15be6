package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// TemplateElement is one segment of a Template: literal text, or a reference
// to an argument by index when Arg is not negative.
type TemplateElement struct {
	Text string
	Arg  int
}

// IsArg reports whether the element references an argument.
func (e TemplateElement) IsArg() bool { return e.Arg >= 0 }

// Template is a parsed text pattern such as "{0} like {1}". Templates drive
// both custom template expressions and dialect operator rendering.
type Template struct {
	text     string
	elements []TemplateElement
}

var templateCache sync.Map

// ParseTemplate parses a pattern in which "{N}" references argument N. Any
// other brace sequence is kept as literal text. Parsed templates are cached.
func ParseTemplate(pattern string) (Template, error) {
	if cached, ok := templateCache.Load(pattern); ok {
		return cached.(Template), nil
	}
	var elements []TemplateElement
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			elements = append(elements, TemplateElement{Text: literal.String(), Arg: -1})
			literal.Reset()
		}
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '{' {
			end := strings.IndexByte(pattern[i:], '}')
			if end > 1 {
				if n, err := strconv.Atoi(pattern[i+1 : i+end]); err == nil {
					if n < 0 {
						return Template{}, fmt.Errorf("%w: negative argument index in template %q", ErrInvalidArgument, pattern)
					}
					flush()
					elements = append(elements, TemplateElement{Arg: n})
					i += end
					continue
				}
			}
		}
		literal.WriteByte(pattern[i])
	}
	flush()
	t := Template{text: pattern, elements: elements}
	templateCache.Store(pattern, t)
	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(pattern string) Template {
	t, err := ParseTemplate(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// literalTemplate builds a template holding text verbatim, with no argument
// references even if the text contains braces.
func literalTemplate(text string) Template {
	return Template{text: text, elements: []TemplateElement{{Text: text, Arg: -1}}}
}

// Text returns the original pattern.
func (t Template) Text() string { return t.text }

// Elements returns the parsed segments.
func (t Template) Elements() []TemplateElement {
	return append([]TemplateElement(nil), t.elements...)
}

// MaxArg returns the highest referenced argument index, or -1.
func (t Template) MaxArg() int {
	max := -1
	for _, e := range t.elements {
		if e.Arg > max {
			max = e.Arg
		}
	}
	return max
}

// TemplateExpression renders its arguments through a Template. It is used for
// custom fragments the operator set cannot express.
type TemplateExpression struct {
	template Template
	args     []Expression
	typ      reflect.Type
	key      string
}

// NewTemplateExpression parses pattern and binds args to it.
func NewTemplateExpression(typ reflect.Type, pattern string, args ...Expression) (*TemplateExpression, error) {
	t, err := ParseTemplate(pattern)
	if err != nil {
		return nil, err
	}
	return NewTemplateExpressionFrom(typ, t, args...)
}

// NewTemplateExpressionFrom binds args to an already parsed template.
func NewTemplateExpressionFrom(typ reflect.Type, t Template, args ...Expression) (*TemplateExpression, error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: template %q has no result type", ErrInvalidArgument, t.text)
	}
	if max := t.MaxArg(); max >= len(args) {
		return nil, fmt.Errorf("%w: template %q references argument %d of %d", ErrInvalidArgument, t.text, max, len(args))
	}
	keys := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("%w: argument %d of template %q is nil", ErrInvalidArgument, i, t.text)
		}
		keys[i] = a.Key()
	}
	return &TemplateExpression{
		template: t,
		args:     append([]Expression(nil), args...),
		typ:      typ,
		key:      "t:" + strconv.Quote(t.text) + "(" + strings.Join(keys, ",") + ")",
	}, nil
}

// MustTemplate is like NewTemplateExpression but panics on error.
func MustTemplate(typ reflect.Type, pattern string, args ...Expression) *TemplateExpression {
	t, err := NewTemplateExpression(typ, pattern, args...)
	if err != nil {
		panic(err)
	}
	return t
}

// Literal returns a template expression that renders text verbatim.
func Literal(typ reflect.Type, text string) *TemplateExpression {
	t, err := NewTemplateExpressionFrom(typ, literalTemplate(text))
	if err != nil {
		panic(err)
	}
	return t
}

// Null renders the null literal.
var Null = Literal(AnyType, "null")

// Template returns the parsed template.
func (t *TemplateExpression) Template() Template { return t.template }

// Args returns a copy of the arguments.
func (t *TemplateExpression) Args() []Expression { return append([]Expression(nil), t.args...) }

// WithArgs returns a template expression over new arguments, or the receiver
// when nothing changed.
func (t *TemplateExpression) WithArgs(args []Expression) (*TemplateExpression, error) {
	if sameArgs(t.args, args) {
		return t, nil
	}
	return NewTemplateExpressionFrom(t.typ, t.template, args...)
}

func (t *TemplateExpression) Type() reflect.Type { return t.typ }
func (t *TemplateExpression) Key() string        { return t.key }
func (*TemplateExpression) expressionNode()      {}

func (t *TemplateExpression) String() string {
	var sb strings.Builder
	for _, e := range t.template.elements {
		if e.IsArg() {
			sb.WriteString(t.args[e.Arg].String())
		} else {
			sb.WriteString(e.Text)
		}
	}
	return sb.String()
}
