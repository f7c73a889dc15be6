// Package sqlite runs statements rendered by the serialize package against
// SQLite databases. It supplies the SQLite dialect, converts bind values to
// forms the driver stores, and reports every execution on an event bus.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/go-weft/core/query"
	"github.com/asaidimu/go-weft/core/serialize"
	"go.uber.org/zap"
)

// ErrNotUnique is returned by Query when metadata marked unique matches more
// than one row.
var ErrNotUnique = errors.New("query marked unique returned more than one row")

// dbRunner abstracts the common methods of *sql.DB and *sql.Tx, so the same
// code runs inside and outside a transaction.
type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// InteractorOptions configures an Interactor.
type InteractorOptions struct {
	// Templates is the dialect statements are rendered with.
	Templates *serialize.Templates

	// UseLiterals renders constants inline instead of binding them.
	UseLiterals bool
}

// DefaultInteractorOptions returns the SQLite dialect with bound constants.
func DefaultInteractorOptions() *InteractorOptions {
	return &InteractorOptions{Templates: SQLiteTemplates()}
}

// Interactor renders query metadata and executes it. It can operate in both
// transactional and non-transactional modes.
type Interactor struct {
	db        *sql.DB
	tx        *sql.Tx
	generator serialize.QueryGenerator
	logger    *zap.Logger
	options   *InteractorOptions
	bus       *events.TypedEventBus[StatementEvent]
}

// NewInteractor creates an interactor over db.
func NewInteractor(db *sql.DB, logger *zap.Logger, options *InteractorOptions) (*Interactor, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: db is nil", query.ErrInvalidArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if options == nil {
		options = DefaultInteractorOptions()
	}
	if options.Templates == nil {
		options.Templates = SQLiteTemplates()
	}
	bus, err := events.NewTypedEventBus[StatementEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	generator, err := serialize.TemplatesFactory{Templates: options.Templates}.CreateGenerator(&serialize.SerializerOptions{
		UseLiterals: options.UseLiterals,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not get a query generator instance: %w", err)
	}
	return &Interactor{
		db:        db,
		generator: generator,
		logger:    logger,
		options:   options,
		bus:       bus,
	}, nil
}

// runner returns the active transaction, or the connection pool outside one.
func (i *Interactor) runner() dbRunner {
	if i.tx != nil {
		return i.tx
	}
	return i.db
}

// Generator returns the generator statements are rendered with, for building
// batches.
func (i *Interactor) Generator() serialize.QueryGenerator { return i.generator }

// Subscribe registers a callback for an event type and returns a function that
// removes it.
func (i *Interactor) Subscribe(eventType StatementEventType, callback EventCallback) func() {
	return i.bus.Subscribe(string(eventType), callback)
}

func (i *Interactor) emit(event StatementEvent) {
	i.bus.Emit(string(event.Type), event)
}

// run executes fn between start and success or failure events.
func (i *Interactor) run(operation, sqlText string, args []any, fn func() (int64, error)) (int64, error) {
	id := newStatementID()
	start := time.Now()
	i.emit(createEvent(id, StatementStart, operation, sqlText, args, nil, nil, start))

	i.logger.Debug("Executing SQL "+operation, zap.String("sql", sqlText), zap.Any("params", args))
	n, err := fn()
	if err != nil {
		i.logger.Error("Failed to execute "+operation+" query", zap.Error(err), zap.String("sql", sqlText), zap.Any("params", args))
		i.emit(createEvent(id, StatementFailed, operation, sqlText, args, nil, err, start))
		return 0, err
	}
	i.emit(createEvent(id, StatementSuccess, operation, sqlText, args, &n, nil, start))
	return n, nil
}

// Query renders md as a select and returns the matching rows. Parameter values
// in params override those set on md.
func (i *Interactor) Query(ctx context.Context, md *query.Metadata, params map[*query.Param]any) ([]Row, error) {
	stmt, err := i.generator.Serialize(md)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SQL query: %w", err)
	}
	args, err := bindArgs(stmt, params)
	if err != nil {
		return nil, fmt.Errorf("failed to bind SQL query: %w", err)
	}

	var results []Row
	_, err = i.run("SELECT", stmt.Text, args, func() (int64, error) {
		rows, err := i.runner().QueryContext(ctx, stmt.Text, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to execute SELECT query: %w", err)
		}
		defer rows.Close()
		results, err = readRows(i.logger, rows)
		if err != nil {
			return 0, err
		}
		if md.IsUnique() && len(results) > 1 {
			return 0, fmt.Errorf("%w: %d rows", ErrNotUnique, len(results))
		}
		return int64(len(results)), nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Update renders and executes an update, returning the number of rows changed.
func (i *Interactor) Update(ctx context.Context, md *query.Metadata, entity *query.Path, updates []query.Assignment) (int64, error) {
	stmt, err := i.generator.SerializeForUpdate(md, entity, updates)
	if err != nil {
		return 0, fmt.Errorf("failed to generate SQL UPDATE query: %w", err)
	}
	return i.exec(ctx, "UPDATE", stmt, nil)
}

// Insert renders and executes an insert, returning the number of rows added.
func (i *Interactor) Insert(ctx context.Context, md *query.Metadata, entity *query.Path, columns []*query.Path, values []query.Expression) (int64, error) {
	stmt, err := i.generator.SerializeForInsert(md, entity, columns, values)
	if err != nil {
		return 0, fmt.Errorf("failed to generate INSERT SQL: %w", err)
	}
	return i.exec(ctx, "INSERT", stmt, nil)
}

// Delete renders and executes a delete, returning the number of rows removed.
func (i *Interactor) Delete(ctx context.Context, md *query.Metadata, entity *query.Path) (int64, error) {
	stmt, err := i.generator.SerializeForDelete(md, entity)
	if err != nil {
		return 0, fmt.Errorf("failed to generate DELETE SQL: %w", err)
	}
	return i.exec(ctx, "DELETE", stmt, nil)
}

func (i *Interactor) exec(ctx context.Context, operation string, stmt *serialize.Statement, params map[*query.Param]any) (int64, error) {
	args, err := bindArgs(stmt, params)
	if err != nil {
		return 0, fmt.Errorf("failed to bind %s query: %w", operation, err)
	}
	return i.run(operation, stmt.Text, args, func() (int64, error) {
		result, err := i.runner().ExecContext(ctx, stmt.Text, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to execute %s query: %w", operation, err)
		}
		return result.RowsAffected()
	})
}

// ExecBatch prepares the batch text once and executes it for every item. It
// returns the total number of rows affected. Run it inside a transaction to
// make the batch atomic.
func (i *Interactor) ExecBatch(ctx context.Context, batch *serialize.Batch, params map[*query.Param]any) (int64, error) {
	if batch.Len() == 0 {
		return 0, nil
	}
	all, err := batch.Args(params)
	if err != nil {
		return 0, fmt.Errorf("failed to bind batch: %w", err)
	}
	for n, stmt := range batch.Statements() {
		for k, b := range stmt.Bindings {
			v, err := PrepareValue(b.Path, all[n][k])
			if err != nil {
				return 0, fmt.Errorf("failed to bind batch item %d: %w", n, err)
			}
			all[n][k] = v
		}
	}

	operation := "BATCH " + batch.Kind()
	return i.run(operation, batch.Text(), nil, func() (int64, error) {
		prepared, err := i.runner().PrepareContext(ctx, batch.Text())
		if err != nil {
			return 0, fmt.Errorf("failed to prepare batch: %w", err)
		}
		defer prepared.Close()

		var total int64
		for n, args := range all {
			result, err := prepared.ExecContext(ctx, args...)
			if err != nil {
				return total, fmt.Errorf("failed to execute batch item %d: %w", n, err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return total, err
			}
			total += affected
		}
		return total, nil
	})
}

// StartTransaction begins a transaction and returns an interactor scoped to
// it. The new interactor shares the event bus of its parent.
func (i *Interactor) StartTransaction(ctx context.Context) (*Interactor, error) {
	if i.tx != nil {
		return nil, fmt.Errorf("cannot start a new transaction from an existing transactional interactor")
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	i.logger.Debug("Transaction initiated, returning new transactional interactor")
	scoped := *i
	scoped.tx = tx
	return &scoped, nil
}

// Commit commits the current transaction.
func (i *Interactor) Commit(ctx context.Context) error {
	if i.tx == nil {
		return fmt.Errorf("commit not applicable: not in a transactional context")
	}
	i.logger.Debug("Committing transaction")
	return i.tx.Commit()
}

// Rollback rolls back the current transaction.
func (i *Interactor) Rollback(ctx context.Context) error {
	if i.tx == nil {
		return fmt.Errorf("rollback not applicable: not in a transactional context")
	}
	i.logger.Debug("Rolling back transaction")
	return i.tx.Rollback()
}
