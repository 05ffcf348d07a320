package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/core"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/store"
)

func Test_Memory_Queries(t *testing.T) {
	// arrange
	ctx := context.Background()
	memory := store.NewMemory(core.SeedBooks()...)

	// act
	books, err := memory.BooksInCategory(ctx, "sci-fi")
	require.NoError(t, err)
	hasCategory, _ := memory.HasCategory(ctx, "romance")
	hasMissingCategory, _ := memory.HasCategory(ctx, "non-fiction")
	hasAuthor, _ := memory.HasAuthor(ctx, "Jane Austen")
	hasBook, _ := memory.HasBook(ctx, "Jane Eyre")
	count, _ := memory.Count(ctx)

	// assert
	assert.Equal(t, []core.Book{{Identifier: "The Blazing World", Author: "Margaret Cavendish", Category: "sci-fi"}}, books)
	assert.True(t, hasCategory)
	assert.False(t, hasMissingCategory)
	assert.True(t, hasAuthor)
	assert.False(t, hasBook)
	assert.Equal(t, 2, count)
}

func Test_Memory_EmptyCategoryIsEmptySlice(t *testing.T) {
	books, err := store.NewMemory().BooksInCategory(context.Background(), "poetry")

	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func Test_Memory_Upsert(t *testing.T) {
	// arrange
	ctx := context.Background()
	memory := store.NewMemory(core.SeedBooks()...)

	// act
	require.NoError(t, memory.Upsert(ctx, core.Book{Identifier: "Jane Eyre", Author: "Charlotte Brontë", Category: "romance"}))
	require.NoError(t, memory.Upsert(ctx, core.Book{Identifier: "The Blazing World", Author: "Margaret Cavendish", Category: "utopia"}))

	// assert
	count, _ := memory.Count(ctx)
	assert.Equal(t, 3, count)

	romance, _ := memory.BooksInCategory(ctx, "romance")
	assert.Equal(t, []string{"Pride and Prejudice", "Jane Eyre"}, identifiers(romance))

	utopia, _ := memory.BooksInCategory(ctx, "utopia")
	assert.Equal(t, []string{"The Blazing World"}, identifiers(utopia))

	assert.ErrorIs(t, memory.Upsert(ctx, core.Book{}), store.ErrEmptyIdentifier)
}

func Test_Memory_DoesNotAliasSeed(t *testing.T) {
	seed := core.SeedBooks()
	memory := store.NewMemory(seed...)

	require.NoError(t, memory.Upsert(context.Background(), core.Book{Identifier: "Pride and Prejudice", Author: "J. Austen", Category: "classic"}))

	assert.Equal(t, "Jane Austen", seed[1].Author)
}

func Test_Memory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.NewMemory().Count(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func identifiers(books []core.Book) []string {
	result := make([]string, 0, len(books))
	for _, book := range books {
		result = append(result, book.Identifier)
	}

	return result
}
