package store

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/core"
)

var (
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")
	ErrEmptyTableName        = errors.New("empty table name supplied")
	ErrEmptyIdentifier       = errors.New("book identifier must not be empty")
)

// Store reads and writes the book catalog.
type Store interface {
	BooksInCategory(ctx context.Context, category string) ([]core.Book, error)
	HasCategory(ctx context.Context, category string) (bool, error)
	HasAuthor(ctx context.Context, author string) (bool, error)
	HasBook(ctx context.Context, identifier string) (bool, error)
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, book core.Book) error
}
