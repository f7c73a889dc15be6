package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/asaidimu/go-weft/core/query"
)

// DecodeRow converts a row into a new T by round-tripping it through JSON, so
// columns match fields by their json tags. T must be a struct or a pointer to
// one. Text columns holding JSON objects or arrays decode into nested fields.
func DecodeRow[T any](row Row) (T, error) {
	var zero T
	if row == nil {
		return zero, fmt.Errorf("%w: row is nil", query.ErrInvalidArgument)
	}
	typ := reflect.TypeOf(zero)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return zero, fmt.Errorf("%w: decode target must be a struct, got %v", query.ErrInvalidArgument, typ)
	}

	fields := make(map[string]any, len(row))
	for k, v := range row {
		if s, ok := v.(string); ok && json.Valid([]byte(s)) && (len(s) > 0 && (s[0] == '{' || s[0] == '[')) {
			fields[k] = json.RawMessage(s)
			continue
		}
		fields[k] = v
	}
	jsonBytes, err := json.Marshal(fields)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal row: %w", err)
	}
	var result T
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return zero, fmt.Errorf("failed to decode row into %v: %w", typ, err)
	}
	return result, nil
}

// QueryInto runs md through the interactor and decodes every row into T.
func QueryInto[T any](ctx context.Context, i *Interactor, md *query.Metadata, params map[*query.Param]any) ([]T, error) {
	rows, err := i.Query(ctx, md, params)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for n, row := range rows {
		v, err := DecodeRow[T](row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		out = append(out, v)
	}
	return out, nil
}
