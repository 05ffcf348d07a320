package store

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/core"
)

// Memory is a Store that keeps the catalog in insertion order in memory.
type Memory struct {
	mu    sync.RWMutex
	books []core.Book
}

// NewMemory creates a Memory store holding a copy of books.
func NewMemory(books ...core.Book) *Memory {
	return &Memory{books: append([]core.Book(nil), books...)}
}

// BooksInCategory returns the books of category in insertion order.
func (m *Memory) BooksInCategory(ctx context.Context, category string) ([]core.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]core.Book, 0)
	for _, book := range m.books {
		if book.Category == category {
			result = append(result, book)
		}
	}

	return result, nil
}

// HasCategory reports whether any book belongs to category.
func (m *Memory) HasCategory(ctx context.Context, category string) (bool, error) {
	return m.any(ctx, func(book core.Book) bool { return book.Category == category })
}

// HasAuthor reports whether any book was written by author.
func (m *Memory) HasAuthor(ctx context.Context, author string) (bool, error) {
	return m.any(ctx, func(book core.Book) bool { return book.Author == author })
}

// HasBook reports whether a book with identifier exists.
func (m *Memory) HasBook(ctx context.Context, identifier string) (bool, error) {
	return m.any(ctx, func(book core.Book) bool { return book.Identifier == identifier })
}

// Count returns the number of books.
func (m *Memory) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.books), nil
}

// Upsert updates the author and category of an existing book or appends a new one.
func (m *Memory) Upsert(ctx context.Context, book core.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if book.Identifier == "" {
		return ErrEmptyIdentifier
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.books {
		if m.books[i].Identifier == book.Identifier {
			m.books[i].Author = book.Author
			m.books[i].Category = book.Category

			return nil
		}
	}

	m.books = append(m.books, book)

	return nil
}

func (m *Memory) any(ctx context.Context, match func(core.Book) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, book := range m.books {
		if match(book) {
			return true, nil
		}
	}

	return false, nil
}

var _ Store = (*Memory)(nil)
