package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/core"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/store/internal/adapters"
)

const (
	defaultBookTableName   = "books"
	dialectPostgres        = "postgres"
	colSeq                 = "seq"
	colIdentifier          = "identifier"
	colAuthor              = "author"
	colCategory            = "category"
	logMsgBuildQueryFailed = "failed to build book query"
	logMsgDBQueryFailed    = "book query execution failed"
	logMsgDBExecFailed     = "book statement execution failed"
	logMsgScanRowFailed    = "failed to scan book row"
	logMsgSQLExecuted      = "executed sql for: "
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrDurationMS      = "duration_ms"
	logActionBooks         = "books_in_category"
	logActionExists        = "exists"
	logActionCount         = "count"
	logActionUpsert        = "upsert"
	logActionSchema        = "ensure_schema"
)

// Postgres is a Store backed by one PostgreSQL table.
type Postgres struct {
	db        adapters.DBAdapter
	tableName string
	logger    contract.Logger
}

// PostgresOption defines a functional option for configuring Postgres.
type PostgresOption func(*Postgres) error

// WithTableName sets the book table name; the default is "books".
func WithTableName(tableName string) PostgresOption {
	return func(p *Postgres) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		p.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger. Debug level receives every SQL statement with its duration,
// Error level receives failed statements.
func WithLogger(logger contract.Logger) PostgresOption {
	return func(p *Postgres) error {
		p.logger = logger
		return nil
	}
}

// NewPostgresFromPGXPool creates a Postgres store using a pgx Pool.
func NewPostgresFromPGXPool(db *pgxpool.Pool, options ...PostgresOption) (Postgres, error) {
	if db == nil {
		return Postgres{}, ErrNilDatabaseConnection
	}

	return newPostgres(adapters.NewPGXAdapter(db), options)
}

// NewPostgresFromPGXPoolWithReplica creates a Postgres store that writes to db and reads from replica.
func NewPostgresFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...PostgresOption) (Postgres, error) {
	if db == nil || replica == nil {
		return Postgres{}, ErrNilDatabaseConnection
	}

	return newPostgres(adapters.NewPGXAdapterWithReplica(db, replica), options)
}

// NewPostgresFromSQLDB creates a Postgres store using a sql.DB.
func NewPostgresFromSQLDB(db *sql.DB, options ...PostgresOption) (Postgres, error) {
	if db == nil {
		return Postgres{}, ErrNilDatabaseConnection
	}

	return newPostgres(adapters.NewSQLAdapter(db), options)
}

// NewPostgresFromSQLX creates a Postgres store using a sqlx.DB.
func NewPostgresFromSQLX(db *sqlx.DB, options ...PostgresOption) (Postgres, error) {
	if db == nil {
		return Postgres{}, ErrNilDatabaseConnection
	}

	return newPostgres(adapters.NewSQLXAdapter(db), options)
}

func newPostgres(db adapters.DBAdapter, options []PostgresOption) (Postgres, error) {
	p := Postgres{
		db:        db,
		tableName: defaultBookTableName,
	}

	for _, option := range options {
		if err := option(&p); err != nil {
			return Postgres{}, err
		}
	}

	return p, nil
}

// EnsureSchema creates the book table if it does not exist yet.
func (p Postgres) EnsureSchema(ctx context.Context) error {
	statement := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s BIGSERIAL, %s TEXT PRIMARY KEY, %s TEXT NOT NULL, %s TEXT NOT NULL)",
		pgx.Identifier{p.tableName}.Sanitize(), colSeq, colIdentifier, colAuthor, colCategory,
	)

	return p.exec(ctx, logActionSchema, statement)
}

// Seed upserts books in order.
func (p Postgres) Seed(ctx context.Context, books ...core.Book) error {
	for _, book := range books {
		if err := p.Upsert(ctx, book); err != nil {
			return err
		}
	}

	return nil
}

// BooksInCategory returns the books of category in insertion order.
func (p Postgres) BooksInCategory(ctx context.Context, category string) ([]core.Book, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(p.tableName).
		Select(colIdentifier, colAuthor, colCategory).
		Where(goqu.C(colCategory).Eq(category)).
		Order(goqu.C(colSeq).Asc()).
		ToSQL()
	if err != nil {
		p.logError(logMsgBuildQueryFailed, err)
		return nil, err
	}

	rows, err := p.query(ctx, logActionBooks, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	books := make([]core.Book, 0)
	for rows.Next() {
		var book core.Book
		if scanErr := rows.Scan(&book.Identifier, &book.Author, &book.Category); scanErr != nil {
			p.logError(logMsgScanRowFailed, scanErr)
			return nil, scanErr
		}

		books = append(books, book)
	}

	return books, rows.Err()
}

// HasCategory reports whether any book belongs to category.
func (p Postgres) HasCategory(ctx context.Context, category string) (bool, error) {
	return p.exists(ctx, colCategory, category)
}

// HasAuthor reports whether any book was written by author.
func (p Postgres) HasAuthor(ctx context.Context, author string) (bool, error) {
	return p.exists(ctx, colAuthor, author)
}

// HasBook reports whether a book with identifier exists.
func (p Postgres) HasBook(ctx context.Context, identifier string) (bool, error) {
	return p.exists(ctx, colIdentifier, identifier)
}

// Count returns the number of books.
func (p Postgres) Count(ctx context.Context) (int, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(p.tableName).
		Select(goqu.COUNT(goqu.Star())).
		ToSQL()
	if err != nil {
		p.logError(logMsgBuildQueryFailed, err)
		return 0, err
	}

	rows, err := p.query(ctx, logActionCount, sqlQuery)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	var count int64
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			p.logError(logMsgScanRowFailed, scanErr)
			return 0, scanErr
		}
	}

	return int(count), rows.Err()
}

// Upsert updates the author and category of an existing book or inserts a new one.
func (p Postgres) Upsert(ctx context.Context, book core.Book) error {
	if book.Identifier == "" {
		return ErrEmptyIdentifier
	}

	statement, _, err := goqu.Dialect(dialectPostgres).
		Insert(p.tableName).
		Rows(goqu.Record{
			colIdentifier: book.Identifier,
			colAuthor:     book.Author,
			colCategory:   book.Category,
		}).
		OnConflict(goqu.DoUpdate(colIdentifier, goqu.Record{
			colAuthor:   goqu.L("EXCLUDED." + colAuthor),
			colCategory: goqu.L("EXCLUDED." + colCategory),
		})).
		ToSQL()
	if err != nil {
		p.logError(logMsgBuildQueryFailed, err)
		return err
	}

	return p.exec(ctx, logActionUpsert, statement)
}

func (p Postgres) exists(ctx context.Context, column, value string) (bool, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(p.tableName).
		Select(goqu.L("1")).
		Where(goqu.C(column).Eq(value)).
		Limit(1).
		ToSQL()
	if err != nil {
		p.logError(logMsgBuildQueryFailed, err)
		return false, err
	}

	rows, err := p.query(ctx, logActionExists, sqlQuery)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	found := rows.Next()

	return found, rows.Err()
}

func (p Postgres) query(ctx context.Context, action, sqlQuery string) (adapters.DBRows, error) {
	start := time.Now()

	rows, err := p.db.Query(ctx, sqlQuery)
	if err != nil {
		p.logError(logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return nil, err
	}

	p.logSQL(action, sqlQuery, time.Since(start))

	return rows, nil
}

func (p Postgres) exec(ctx context.Context, action, statement string) error {
	start := time.Now()

	if _, err := p.db.Exec(ctx, statement); err != nil {
		p.logError(logMsgDBExecFailed, err, logAttrQuery, statement)
		return err
	}

	p.logSQL(action, statement, time.Since(start))

	return nil
}

func (p Postgres) logSQL(action, sqlQuery string, duration time.Duration) {
	if p.logger != nil {
		p.logger.Debug(logMsgSQLExecuted+action, logAttrQuery, sqlQuery, logAttrDurationMS, duration.Milliseconds())
	}
}

func (p Postgres) logError(msg string, err error, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, append([]any{logAttrError, err.Error()}, args...)...)
	}
}

var _ Store = Postgres{}
