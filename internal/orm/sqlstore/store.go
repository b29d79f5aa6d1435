// Package sqlstore persists model instances to PostgreSQL or SQLite. Only
// the changed attributes of an instance are written, and the change log is
// cleared once the write is committed.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/modelkit/internal/orm/codegen"
	"github.com/conduit-lang/modelkit/internal/orm/model"
	"github.com/conduit-lang/modelkit/internal/orm/naming"
	"github.com/conduit-lang/modelkit/internal/orm/schema"

	_ "github.com/jackc/pgx/v5/stdlib" // "pgx"
	_ "github.com/lib/pq"              // "postgres"
	_ "github.com/mattn/go-sqlite3"    // "sqlite3"
)

// executor is implemented by *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store reads and writes model instances through database/sql
type Store struct {
	db      *sql.DB
	dialect codegen.Dialect
	logger  *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger of the store
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store on an open database
func New(db *sql.DB, dialect codegen.Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a database with one of the registered drivers ("pgx",
// "postgres" or "sqlite3") and checks the connection
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	dialect, err := codegen.ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db, dialect, opts...), nil
}

// DB returns the underlying database
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect of the store
func (s *Store) Dialect() codegen.Dialect {
	return s.dialect
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTransaction runs fn in a transaction carried by the context passed to
// fn. The transaction commits when fn returns nil and rolls back otherwise.
// Calls nested inside fn join the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(WithContext(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) executor(ctx context.Context) executor {
	if tx, ok := FromContext(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) placeholder(n int) string {
	if s.dialect == codegen.DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// Sync creates the tables of schemas that do not exist yet
func (s *Store) Sync(ctx context.Context, idKey string, schemas []*schema.ModelSchema) error {
	statements, err := codegen.NewDDLGenerator(s.dialect, idKey).Generate(schemas)
	if err != nil {
		return fmt.Errorf("failed to generate DDL: %w", err)
	}

	return s.WithTransaction(ctx, func(ctx context.Context) error {
		for _, stmt := range statements {
			if _, err := s.executor(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), ConvertDBError(err))
			}
		}
		s.logger.Info("schema synced", zap.Int("models", len(schemas)), zap.Int("statements", len(statements)))
		return nil
	})
}

// Save writes the changed attributes of inst. New instances are inserted
// with their temporary id as identifier; existing ones are updated by id.
// The change log is cleared once the write has been committed.
func (s *Store) Save(ctx context.Context, inst *model.Instance) error {
	if inst.Disposed() {
		return ErrDisposed
	}
	ms := inst.Schema()
	if ms == nil {
		return ErrNoSchema
	}

	idKey := inst.Class().Factory().IDKey()
	data := inst.ChangedData()

	if !inst.IsNew() {
		delete(data, idKey)
		if len(data) == 0 {
			s.logger.Debug("nothing to save", zap.Stringer("instance", inst))
			return nil
		}
		id, _ := inst.ID()
		if err := s.WithTransaction(ctx, func(ctx context.Context) error {
			return s.update(ctx, ms, idKey, id, data)
		}); err != nil {
			return err
		}
		inst.RemoveChanges()
		return nil
	}

	id := inst.TempID()
	if id == "" {
		return fmt.Errorf("instance %s has no id and no temporary id", inst)
	}
	if err := s.WithTransaction(ctx, func(ctx context.Context) error {
		return s.insert(ctx, ms, idKey, id, data)
	}); err != nil {
		return err
	}
	if !inst.Restore(idKey, id) {
		return fmt.Errorf("instance %s cannot hold id %q", inst, id)
	}
	inst.RemoveChanges()
	return nil
}

func (s *Store) insert(ctx context.Context, ms *schema.ModelSchema, idKey string, id interface{}, data model.Properties) error {
	columns := []string{naming.QuoteIdentifier(codegen.ColumnName(idKey))}
	placeholders := []string{s.placeholder(1)}
	values := []interface{}{id}

	for _, name := range ms.Names() {
		value, ok := data[name]
		if !ok || name == idKey {
			continue
		}
		attr, _ := ms.Attribute(name)
		encoded, err := encodeValue(s.dialect, attr.Type, value)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		columns = append(columns, naming.QuoteIdentifier(codegen.ColumnName(name)))
		placeholders = append(placeholders, s.placeholder(len(values)+1))
		values = append(values, encoded)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		naming.QuoteIdentifier(codegen.TableName(ms)),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))

	if _, err := s.executor(ctx).ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", ms.ClassName, ConvertDBError(err))
	}
	s.logger.Debug("record inserted", zap.String("model", ms.ClassName), zap.Int("columns", len(columns)))
	return nil
}

func (s *Store) update(ctx context.Context, ms *schema.ModelSchema, idKey string, id interface{}, data model.Properties) error {
	var assignments []string
	var values []interface{}

	for _, name := range ms.Names() {
		value, ok := data[name]
		if !ok {
			continue
		}
		attr, _ := ms.Attribute(name)
		encoded, err := encodeValue(s.dialect, attr.Type, value)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		values = append(values, encoded)
		assignments = append(assignments, fmt.Sprintf("%s = %s",
			naming.QuoteIdentifier(codegen.ColumnName(name)), s.placeholder(len(values))))
	}
	values = append(values, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		naming.QuoteIdentifier(codegen.TableName(ms)),
		strings.Join(assignments, ", "),
		naming.QuoteIdentifier(codegen.ColumnName(idKey)),
		s.placeholder(len(values)))

	result, err := s.executor(ctx).ExecContext(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", ms.ClassName, ConvertDBError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %v: %w", ms.ClassName, id, ErrNotFound)
	}
	s.logger.Debug("record updated", zap.String("model", ms.ClassName), zap.Int("columns", len(assignments)))
	return nil
}

// Find loads the record with identifier id into a new instance of class.
// The loaded instance has no recorded changes.
func (s *Store) Find(ctx context.Context, class *model.Class, id interface{}) (*model.Instance, error) {
	ms, ok := class.Schema()
	if !ok {
		return nil, ErrNoSchema
	}
	idKey := class.Factory().IDKey()

	names := []string{idKey}
	columns := []string{naming.QuoteIdentifier(codegen.ColumnName(idKey))}
	targets := []interface{}{scanTarget(s.dialect, nil)}
	fragments := []*schema.Fragment{nil}
	for _, attr := range ms.Attributes() {
		if attr.Name == idKey {
			fragments[0] = attr.Type
			targets[0] = scanTarget(s.dialect, attr.Type)
			continue
		}
		names = append(names, attr.Name)
		columns = append(columns, naming.QuoteIdentifier(codegen.ColumnName(attr.Name)))
		targets = append(targets, scanTarget(s.dialect, attr.Type))
		fragments = append(fragments, attr.Type)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(columns, ", "),
		naming.QuoteIdentifier(codegen.TableName(ms)),
		columns[0],
		s.placeholder(1))

	if err := s.executor(ctx).QueryRowContext(ctx, query, id).Scan(targets...); err != nil {
		return nil, fmt.Errorf("failed to find %s %v: %w", ms.ClassName, id, ConvertDBError(err))
	}

	props := make(model.Properties, len(names))
	for i, name := range names {
		value, err := decodeValue(s.dialect, fragments[i], targets[i])
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		if value != nil {
			props[name] = value
		}
	}
	return class.New(props)
}

// Delete removes the record of inst
func (s *Store) Delete(ctx context.Context, inst *model.Instance) error {
	ms := inst.Schema()
	if ms == nil {
		return ErrNoSchema
	}
	id, ok := inst.ID()
	if !ok {
		return fmt.Errorf("%s: %w", inst, ErrNotFound)
	}
	idKey := inst.Class().Factory().IDKey()

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		naming.QuoteIdentifier(codegen.TableName(ms)),
		naming.QuoteIdentifier(codegen.ColumnName(idKey)),
		s.placeholder(1))

	result, err := s.executor(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", ms.ClassName, ConvertDBError(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %v: %w", ms.ClassName, id, ErrNotFound)
	}
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
