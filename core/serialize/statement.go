package serialize

import (
	"fmt"

	"github.com/asaidimu/go-weft/core/query"
)

// Binding is one value to bind, in placeholder order. Param is set when the
// placeholder came from a parameter; Bound then reports whether the metadata
// held a value for it. Path is the path the value is compared with or
// assigned to, nil when there is none.
type Binding struct {
	Value any
	Param *query.Param
	Path  *query.Path
	Bound bool
}

// Statement is rendered query text with its bindings.
type Statement struct {
	Text      string
	Bindings  []Binding
	Modifiers query.Modifiers
}

// Constants returns the values of the bindings that came from constants.
func (s *Statement) Constants() []any {
	var out []any
	for _, b := range s.Bindings {
		if b.Param == nil {
			out = append(out, b.Value)
		}
	}
	return out
}

// ConstantPaths returns, for each constant binding, the path it relates to.
func (s *Statement) ConstantPaths() []*query.Path {
	var out []*query.Path
	for _, b := range s.Bindings {
		if b.Param == nil {
			out = append(out, b.Path)
		}
	}
	return out
}

// Args resolves every binding to a value, in placeholder order. Parameter
// values in overrides take precedence over those captured from the metadata.
// A parameter with no value fails with query.ErrUnboundParam.
func (s *Statement) Args(overrides map[*query.Param]any) ([]any, error) {
	byKey := make(map[string]any, len(overrides))
	for p, v := range overrides {
		byKey[p.Key()] = v
	}
	args := make([]any, len(s.Bindings))
	for i, b := range s.Bindings {
		switch {
		case b.Param == nil:
			args[i] = b.Value
		default:
			if v, ok := byKey[b.Param.Key()]; ok {
				args[i] = v
			} else if b.Bound {
				args[i] = b.Value
			} else {
				return nil, fmt.Errorf("%w: %s", query.ErrUnboundParam, b.Param)
			}
		}
	}
	return args, nil
}
