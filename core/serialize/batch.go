package serialize

import (
	"errors"
	"fmt"

	"github.com/asaidimu/go-weft/core/query"
)

// ErrBatchMismatch is returned when a batch item renders different text than
// the items before it.
var ErrBatchMismatch = errors.New("batch item does not match batch statement")

// Batch collects DML statements that share one text and differ only in their
// bound values, for execution as a single prepared statement. Each item is
// rendered from a clone of the metadata it was added with, so callers may keep
// mutating their metadata between adds.
type Batch struct {
	gen        QueryGenerator
	kind       string
	statements []*Statement
}

// NewBatch creates an empty batch rendered by gen.
func NewBatch(gen QueryGenerator) *Batch {
	return &Batch{gen: gen}
}

// AddUpdate renders an update and adds it to the batch.
func (b *Batch) AddUpdate(md *query.Metadata, entity *query.Path, updates []query.Assignment) error {
	if md == nil {
		return fmt.Errorf("%w: metadata is nil", query.ErrInvalidArgument)
	}
	stmt, err := b.gen.SerializeForUpdate(md.Clone(), entity, updates)
	return b.add("update", stmt, err)
}

// AddInsert renders an insert and adds it to the batch.
func (b *Batch) AddInsert(md *query.Metadata, entity *query.Path, columns []*query.Path, values []query.Expression) error {
	if md == nil {
		return fmt.Errorf("%w: metadata is nil", query.ErrInvalidArgument)
	}
	stmt, err := b.gen.SerializeForInsert(md.Clone(), entity, columns, values)
	return b.add("insert", stmt, err)
}

// AddDelete renders a delete and adds it to the batch.
func (b *Batch) AddDelete(md *query.Metadata, entity *query.Path) error {
	if md == nil {
		return fmt.Errorf("%w: metadata is nil", query.ErrInvalidArgument)
	}
	stmt, err := b.gen.SerializeForDelete(md.Clone(), entity)
	return b.add("delete", stmt, err)
}

func (b *Batch) add(kind string, stmt *Statement, err error) error {
	if err != nil {
		return fmt.Errorf("batch %s: %w", kind, err)
	}
	if len(b.statements) > 0 {
		if kind != b.kind {
			return fmt.Errorf("%w: %s added to a %s batch", ErrBatchMismatch, kind, b.kind)
		}
		if stmt.Text != b.statements[0].Text {
			return fmt.Errorf("%w: %q differs from %q", ErrBatchMismatch, stmt.Text, b.statements[0].Text)
		}
	}
	b.kind = kind
	b.statements = append(b.statements, stmt)
	return nil
}

// Len returns the number of items.
func (b *Batch) Len() int { return len(b.statements) }

// Kind returns "update", "insert" or "delete", or "" for an empty batch.
func (b *Batch) Kind() string { return b.kind }

// Text returns the shared statement text, or "" for an empty batch.
func (b *Batch) Text() string {
	if len(b.statements) == 0 {
		return ""
	}
	return b.statements[0].Text
}

// Statements returns the rendered items in insertion order.
func (b *Batch) Statements() []*Statement {
	return append([]*Statement(nil), b.statements...)
}

// Args resolves the arguments of every item, in insertion order.
func (b *Batch) Args(overrides map[*query.Param]any) ([][]any, error) {
	out := make([][]any, len(b.statements))
	for i, s := range b.statements {
		args, err := s.Args(overrides)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		out[i] = args
	}
	return out, nil
}
