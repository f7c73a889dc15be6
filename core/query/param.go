package query

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// Param is a placeholder whose value is supplied at execution time. Params
// are identified by name; the value is not part of the identity.
type Param struct {
	name      string
	typ       reflect.Type
	anonymous bool
}

// NewParam creates a named parameter.
func NewParam(typ reflect.Type, name string) (*Param, error) {
	if typ == nil || name == "" {
		return nil, fmt.Errorf("%w: param needs a type and a name", ErrInvalidArgument)
	}
	return &Param{name: name, typ: typ}, nil
}

// NewAnonymousParam creates a parameter with a generated unique name.
func NewAnonymousParam(typ reflect.Type) (*Param, error) {
	p, err := NewParam(typ, "param_"+uuid.New().String())
	if err != nil {
		return nil, err
	}
	p.anonymous = true
	return p, nil
}

// Name returns the parameter name.
func (p *Param) Name() string { return p.name }

// IsAnonymous reports whether the name was generated.
func (p *Param) IsAnonymous() bool { return p.anonymous }

func (p *Param) Type() reflect.Type { return p.typ }
func (p *Param) Key() string        { return "param:" + strconv.Quote(p.name) }
func (p *Param) String() string     { return ":" + p.name }
func (*Param) expressionNode()      {}
