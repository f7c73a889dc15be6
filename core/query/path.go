package query

import (
	"fmt"
	"reflect"
	"strconv"
)

// PathKind identifies how a path is derived from its parent.
type PathKind int

const (
	// PathVariable is a root path: a query variable with no parent.
	PathVariable PathKind = iota
	// PathProperty is a named property of the parent.
	PathProperty
	// PathListIndex is an indexed element of a list-valued parent.
	PathListIndex
	// PathCollectionAny marks "any element" of a collection-valued parent.
	PathCollectionAny
)

func (k PathKind) String() string {
	switch k {
	case PathVariable:
		return "variable"
	case PathProperty:
		return "property"
	case PathListIndex:
		return "index"
	case PathCollectionAny:
		return "any"
	default:
		return "unknown"
	}
}

// PathMetadata locates a path relative to its parent. Path equality is defined
// by metadata alone.
type PathMetadata struct {
	Parent  *Path
	Element string // variable or property name
	Index   int    // list index, for PathListIndex
	Kind    PathKind
}

// Path is a named reference into the queried data model: a root variable or a
// property, list element or collection element derived from another path.
type Path struct {
	meta   PathMetadata
	typ    reflect.Type
	entity string
	key    string
}

// NewPath builds a path from its metadata. Root paths take their entity name
// from the type name.
func NewPath(typ reflect.Type, meta PathMetadata) (*Path, error) {
	switch meta.Kind {
	case PathVariable:
		if meta.Parent != nil {
			return nil, fmt.Errorf("%w: variable %q must not have a parent", ErrInvalidArgument, meta.Element)
		}
		if meta.Element == "" {
			return nil, fmt.Errorf("%w: variable name is empty", ErrInvalidArgument)
		}
	case PathProperty:
		if meta.Parent == nil || meta.Element == "" {
			return nil, fmt.Errorf("%w: property path needs a parent and a name", ErrInvalidArgument)
		}
	case PathListIndex:
		if meta.Parent == nil || meta.Index < 0 {
			return nil, fmt.Errorf("%w: index path needs a parent and a non-negative index", ErrInvalidArgument)
		}
	case PathCollectionAny:
		if meta.Parent == nil || !meta.Parent.IsCollection() {
			return nil, fmt.Errorf("%w: any() requires a collection-valued parent", ErrInvalidArgument)
		}
	default:
		return nil, fmt.Errorf("%w: unknown path kind %d", ErrInvalidArgument, meta.Kind)
	}
	if typ == nil {
		return nil, fmt.Errorf("%w: path type is nil", ErrInvalidArgument)
	}
	p := &Path{meta: meta, typ: typ, key: pathKey(meta)}
	if meta.Kind == PathVariable {
		p.entity = typ.Name()
	}
	return p, nil
}

func pathKey(meta PathMetadata) string {
	switch meta.Kind {
	case PathVariable:
		return "$" + strconv.Quote(meta.Element)
	case PathProperty:
		return meta.Parent.key + "." + strconv.Quote(meta.Element)
	case PathListIndex:
		return meta.Parent.key + "[" + strconv.Itoa(meta.Index) + "]"
	default:
		return meta.Parent.key + ".any()"
	}
}

// NewRootPath creates a root variable of the given entity type.
func NewRootPath(typ reflect.Type, variable string) (*Path, error) {
	return NewPath(typ, PathMetadata{Element: variable, Kind: PathVariable})
}

// NewEntityPath creates a root variable rendered in from clauses with an
// explicit entity or table name instead of the type name.
func NewEntityPath(typ reflect.Type, entity, variable string) (*Path, error) {
	if entity == "" {
		return nil, fmt.Errorf("%w: entity name is empty", ErrInvalidArgument)
	}
	p, err := NewRootPath(typ, variable)
	if err != nil {
		return nil, err
	}
	p.entity = entity
	return p, nil
}

func mustPath(p *Path, err error) *Path {
	if err != nil {
		panic(err)
	}
	return p
}

// Root is like NewRootPath but panics on invalid arguments. It is intended for
// package-level path declarations.
func Root(typ reflect.Type, variable string) *Path {
	return mustPath(NewRootPath(typ, variable))
}

// Entity is like NewEntityPath but panics on invalid arguments.
func Entity(typ reflect.Type, entity, variable string) *Path {
	return mustPath(NewEntityPath(typ, entity, variable))
}

// Get derives a property path. It panics on invalid arguments.
func (p *Path) Get(name string, typ reflect.Type) *Path {
	return mustPath(NewPath(typ, PathMetadata{Parent: p, Element: name, Kind: PathProperty}))
}

// Collection derives a collection-valued property whose elements have type elem.
func (p *Path) Collection(name string, elem reflect.Type) *Path {
	if elem == nil {
		panic(fmt.Errorf("%w: collection element type is nil", ErrInvalidArgument))
	}
	return p.Get(name, reflect.SliceOf(elem))
}

// At derives the element at index of a list-valued path.
func (p *Path) At(index int) *Path {
	return mustPath(NewPath(p.ElementType(), PathMetadata{Parent: p, Index: index, Kind: PathListIndex}))
}

// Any marks "any element" of a collection-valued path. Predicates built on the
// result are rewritten into existence subqueries before rendering.
func (p *Path) Any() *Path {
	return mustPath(NewPath(p.ElementType(), PathMetadata{Parent: p, Kind: PathCollectionAny}))
}

// Metadata returns the path metadata.
func (p *Path) Metadata() PathMetadata { return p.meta }

// Parent returns the parent path, nil for roots.
func (p *Path) Parent() *Path { return p.meta.Parent }

// Element returns the variable or property name.
func (p *Path) Element() string { return p.meta.Element }

// Kind returns the path kind.
func (p *Path) Kind() PathKind { return p.meta.Kind }

// IsRoot reports whether the path has no parent.
func (p *Path) IsRoot() bool { return p.meta.Parent == nil }

// Root walks the parent chain to the root variable.
func (p *Path) Root() *Path {
	r := p
	for r.meta.Parent != nil {
		r = r.meta.Parent
	}
	return r
}

// EntityName is the name used for the path in from clauses.
func (p *Path) EntityName() string { return p.Root().entity }

// IsCollection reports whether the path is collection valued.
func (p *Path) IsCollection() bool {
	switch p.typ.Kind() {
	case reflect.Slice, reflect.Array:
		return p.typ.Elem().Kind() != reflect.Uint8
	case reflect.Map:
		return true
	}
	return false
}

// ElementType is the element type of a collection-valued path, nil otherwise.
func (p *Path) ElementType() reflect.Type {
	if !p.IsCollection() {
		return nil
	}
	return p.typ.Elem()
}

// HasAny reports whether the path or any of its ancestors is an any() marker.
func (p *Path) HasAny() bool {
	for c := p; c != nil; c = c.meta.Parent {
		if c.meta.Kind == PathCollectionAny {
			return true
		}
	}
	return false
}

// WithParent rebuilds the path under a different parent, keeping its element,
// index, kind and type.
func (p *Path) WithParent(parent *Path) (*Path, error) {
	meta := p.meta
	meta.Parent = parent
	return NewPath(p.typ, meta)
}

func (p *Path) Type() reflect.Type { return p.typ }
func (p *Path) Key() string        { return p.key }
func (*Path) expressionNode()      {}

func (p *Path) String() string {
	switch p.meta.Kind {
	case PathVariable:
		return p.meta.Element
	case PathProperty:
		return p.meta.Parent.String() + "." + p.meta.Element
	case PathListIndex:
		return p.meta.Parent.String() + "[" + strconv.Itoa(p.meta.Index) + "]"
	default:
		return "any(" + p.meta.Parent.String() + ")"
	}
}
