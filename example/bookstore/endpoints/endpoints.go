package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
	"github.com/AntonStoeckl/endpoint-contracts-go/contract/celcondition"
	"github.com/AntonStoeckl/endpoint-contracts-go/contract/httpcontract"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/core"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/store"
)

const (
	descriptionCategoryMustExist   = "The category must exist."
	descriptionCategoryNotEmpty    = "The category must not be empty."
	descriptionAuthorsMustExist    = "One ore more authors of the resulting books do not exist."
	descriptionBookCountBookkeeper = "The book count grows by one for a new book and stays for an existing one."
)

type settings struct {
	slowChecks bool
	celOptions []celcondition.Option
}

// Option configures Register.
type Option func(*settings)

// WithSlowChecks decides whether the post-conditions that query the store again are enforced.
// They are always documented. The default is enforced.
func WithSlowChecks(enforced bool) Option {
	return func(s *settings) {
		s.slowChecks = enforced
	}
}

// WithCELOptions passes options to the CEL environments of the expression conditions.
func WithCELOptions(options ...celcondition.Option) Option {
	return func(s *settings) {
		s.celOptions = append(s.celOptions, options...)
	}
}

type handlers struct {
	store store.Store
}

func (h *handlers) hasAuthor(ctx context.Context, args contract.Args) (any, error) {
	identifier, _ := args["identifier"].(string)
	return h.store.HasAuthor(ctx, identifier)
}

func (h *handlers) hasCategory(ctx context.Context, args contract.Args) (any, error) {
	category, _ := args["category"].(string)
	return h.store.HasCategory(ctx, category)
}

func (h *handlers) booksInCategory(ctx context.Context, args contract.Args) (any, error) {
	category, _ := args["category"].(string)
	return h.store.BooksInCategory(ctx, category)
}

func (h *handlers) hasBook(ctx context.Context, args contract.Args) (any, error) {
	bookID, _ := args["book_id"].(string)
	return h.store.HasBook(ctx, bookID)
}

func (h *handlers) bookCount(ctx context.Context, _ contract.Args) (any, error) {
	return h.store.Count(ctx)
}

func (h *handlers) upsertBook(ctx context.Context, args contract.Args) (any, error) {
	book, _ := args["book"].(core.Book)
	return nil, h.store.Upsert(ctx, book)
}

type registration struct {
	method  string
	path    string
	name    string
	handler contract.Handler
	params  []httpcontract.Param
}

// Register decorates the bookstore handlers with their contracts in reg and routes them on router.
func Register(router *httpcontract.Router, reg *contract.Registry, s store.Store, options ...Option) error {
	cfg := settings{slowChecks: true}
	for _, option := range options {
		option(&cfg)
	}

	h := &handlers{store: s}
	c := &checks{store: s}

	booksInCategory, err := decorateBooksInCategory(reg, h, c, cfg)
	if err != nil {
		return err
	}

	bookCount, err := decorateBookCount(reg, h, cfg)
	if err != nil {
		return err
	}

	upsertBook, err := decorateUpsertBook(reg, h, c, cfg)
	if err != nil {
		return err
	}

	registrations := []registration{
		{http.MethodGet, "/has_author", "has_author",
			contract.NewEndpoint("has_author", h.hasAuthor, "identifier"),
			[]httpcontract.Param{httpcontract.Query("identifier")}},
		{http.MethodGet, "/has_category", "has_category",
			contract.NewEndpoint("has_category", h.hasCategory, "category"),
			[]httpcontract.Param{httpcontract.Query("category")}},
		{http.MethodGet, "/books_in_category", "books_in_category",
			booksInCategory,
			[]httpcontract.Param{httpcontract.Query("category")}},
		{http.MethodGet, "/has_book", "has_book",
			contract.NewEndpoint("has_book", h.hasBook, "book_id"),
			[]httpcontract.Param{httpcontract.Query("book_id")}},
		{http.MethodGet, "/book_count", "book_count",
			bookCount,
			nil},
		{http.MethodPost, "/upsert_book", "add_book",
			upsertBook,
			[]httpcontract.Param{httpcontract.Body[core.Book]("book")}},
	}

	for _, r := range registrations {
		if err := router.Handle(r.method, r.path, r.name, r.handler, r.params...); err != nil {
			return err
		}
	}

	return nil
}

func decorateBooksInCategory(reg *contract.Registry, h *handlers, c *checks, cfg settings) (contract.Handler, error) {
	endpoint := contract.NewEndpoint("books_in_category", h.booksInCategory, "category")

	env, err := celcondition.ForHandler(endpoint, cfg.celOptions...)
	if err != nil {
		return nil, err
	}

	notEmpty, err := env.Condition(`category != ""`)
	if err != nil {
		return nil, err
	}

	decorated, err := contract.Apply(endpoint,
		reg.Require(notEmpty, contract.WithDescription(descriptionCategoryNotEmpty)),
		reg.Require(contract.Check(c.categoryExists, "category"),
			contract.WithStatusCode(http.StatusNotFound),
			contract.WithDescription(descriptionCategoryMustExist)),
		reg.Ensure(contract.CheckAsync(c.authorsExist, contract.ResultName),
			contract.WithDescription(descriptionAuthorsMustExist),
			contract.Enforced(cfg.slowChecks)),
	)
	if err != nil {
		return nil, fmt.Errorf("decorating books_in_category: %w", err)
	}

	return decorated, nil
}

func decorateBookCount(reg *contract.Registry, h *handlers, cfg settings) (contract.Handler, error) {
	endpoint := contract.NewEndpoint("book_count", h.bookCount)

	env, err := celcondition.ForHandler(endpoint, cfg.celOptions...)
	if err != nil {
		return nil, err
	}

	nonNegative, err := env.Condition("result >= 0")
	if err != nil {
		return nil, err
	}

	decorated, err := contract.Apply(endpoint, reg.Ensure(nonNegative))
	if err != nil {
		return nil, fmt.Errorf("decorating book_count: %w", err)
	}

	return decorated, nil
}

func decorateUpsertBook(reg *contract.Registry, h *handlers, c *checks, cfg settings) (contract.Handler, error) {
	endpoint := contract.NewEndpoint("add_book", h.upsertBook, "book")

	decorated, err := contract.Apply(endpoint,
		reg.Snapshot(contract.CaptureFunc(c.bookExisted, "book"), snapshotHasBook, contract.Enabled(cfg.slowChecks)),
		reg.Snapshot(contract.CaptureFunc(c.countBooks), snapshotBookCount, contract.Enabled(cfg.slowChecks)),
		reg.Ensure(contract.Check(c.bookExists, "book")),
		reg.Ensure(contract.CheckAsync(c.countKeptInStep, "OLD."+snapshotHasBook, "OLD."+snapshotBookCount),
			contract.WithDescription(descriptionBookCountBookkeeper),
			contract.Enforced(cfg.slowChecks)),
	)
	if err != nil {
		return nil, fmt.Errorf("decorating add_book: %w", err)
	}

	return decorated, nil
}
