package endpoints

import (
	"context"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/core"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/store"
)

const (
	snapshotHasBook   = "has_book"
	snapshotBookCount = "book_count"
)

// checks holds the conditions and snapshot captures of the bookstore endpoints.
// They are methods, so the documented text names them.
type checks struct {
	store store.Store
}

func (c *checks) categoryExists(ctx context.Context, values contract.Values) (bool, error) {
	category, _ := values["category"].(string)
	return c.store.HasCategory(ctx, category)
}

func (c *checks) authorsExist(ctx context.Context, values contract.Values) *contract.Task[bool] {
	books, _ := values.Result().([]core.Book)

	return contract.Go(func() (bool, error) {
		for _, book := range books {
			exists, err := c.store.HasAuthor(ctx, book.Author)
			if err != nil || !exists {
				return false, err
			}
		}

		return true, nil
	})
}

func (c *checks) bookExists(ctx context.Context, values contract.Values) (bool, error) {
	book, _ := values["book"].(core.Book)
	return c.store.HasBook(ctx, book.Identifier)
}

func (c *checks) bookExisted(ctx context.Context, values contract.Values) (any, error) {
	book, _ := values["book"].(core.Book)
	return c.store.HasBook(ctx, book.Identifier)
}

func (c *checks) countBooks(ctx context.Context, _ contract.Values) (any, error) {
	return c.store.Count(ctx)
}

// countKeptInStep holds when an upsert added exactly one book for a new identifier
// and none for an existing one.
func (c *checks) countKeptInStep(ctx context.Context, values contract.Values) *contract.Task[bool] {
	old := values.Old()
	hadBook, _ := old.Value(snapshotHasBook).(bool)
	oldCount, _ := old.Value(snapshotBookCount).(int)

	return contract.Go(func() (bool, error) {
		count, err := c.store.Count(ctx)
		if err != nil {
			return false, err
		}

		if hadBook {
			return count == oldCount, nil
		}

		return count == oldCount+1, nil
	})
}
