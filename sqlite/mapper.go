package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/asaidimu/go-weft/core/query"
	"github.com/asaidimu/go-weft/core/serialize"
	"go.uber.org/zap"
)

// Row is one result row keyed by column name.
type Row map[string]any

var timeType = reflect.TypeOf(time.Time{})

// PrepareValue converts a bind value to a form SQLite stores. The target type
// is taken from the path the value is compared with or assigned to, falling
// back to the type of the value itself. Booleans become 0 or 1 and composite
// values are stored as JSON text.
func PrepareValue(path *query.Path, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if _, ok := value.(driver.Valuer); ok {
		return value, nil
	}

	target := reflect.TypeOf(value)
	if path != nil && path.Type() != query.AnyType {
		target = path.Type()
	}

	switch target.Kind() {
	case reflect.Bool:
		return prepareBool(path, value)
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		if target == timeType {
			return value, nil
		}
		if b, ok := value.([]byte); ok {
			return b, nil
		}
		if target.Kind() == reflect.Slice && target.Elem().Kind() == reflect.Uint8 {
			return value, nil
		}
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize value for %s to JSON: %w", pathName(path), err)
		}
		return string(jsonBytes), nil
	default:
		return value, nil
	}
}

func prepareBool(path *query.Path, value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		switch strings.ToLower(v) {
		case "true":
			return 1, nil
		case "false":
			return 0, nil
		}
	case int, int64:
		return v, nil
	case float64:
		if v == 1.0 {
			return 1, nil
		}
		if v == 0.0 {
			return 0, nil
		}
	}
	return nil, fmt.Errorf("expected boolean for %s, got %T", pathName(path), value)
}

func pathName(p *query.Path) string {
	if p == nil {
		return "value"
	}
	return p.String()
}

// bindArgs resolves the statement arguments and prepares each for the driver.
func bindArgs(stmt *serialize.Statement, params map[*query.Param]any) ([]any, error) {
	args, err := stmt.Args(params)
	if err != nil {
		return nil, err
	}
	for i, b := range stmt.Bindings {
		v, err := PrepareValue(b.Path, args[i])
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// readRows reads all rows into maps. Text returned as bytes is converted to
// strings.
func readRows(logger *zap.Logger, rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []Row
	for rows.Next() {
		row := make(Row, len(columns))
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		results = append(results, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	logger.Debug("Read rows", zap.Int("count", len(results)), zap.Strings("columns", columns))
	return results, nil
}
