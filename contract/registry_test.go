package contract_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
	"github.com/AntonStoeckl/endpoint-contracts-go/testutil/helper"
)

func authorsExist(_ context.Context, _ contract.Values) (bool, error) {
	return true, nil
}

func countBooks(_ context.Context, _ contract.Values) (any, error) {
	return 2, nil
}

func givenBooksEndpoint() *contract.Endpoint {
	return contract.NewEndpoint("books_in_category", func(_ context.Context, _ contract.Args) (any, error) {
		return []string{}, nil
	}, "category")
}

func Test_Registry_RecordsMetadataInEvaluationOrder(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	endpoint := givenBooksEndpoint()

	// act
	h := helper.GivenDecorated(t, endpoint,
		reg.Require(
			contract.Check(hasCategory, "category"),
			contract.WithStatusCode(http.StatusNotFound),
			contract.WithDescription("The category must exist.")),
		reg.Require(contract.Check(func(_ context.Context, _ contract.Values) (bool, error) {
			return true, nil
		}), contract.WithDescription("The category must not be blank.")),
		reg.Snapshot(contract.CaptureFunc(countBooks), "count"),
		reg.Ensure(contract.Check(authorsExist, contract.ResultName), contract.Enforced(false)),
		reg.Ensure(contract.Check(func(_ context.Context, _ contract.Values) (bool, error) {
			return true, nil
		}, "OLD.count")),
	)

	// assert
	record, ok := reg.Metadata(h)
	require.True(t, ok)

	assert.Equal(t, []contract.ContractDescriptor{
		{
			Enforced:    true,
			Text:        "hasCategory",
			Language:    contract.LanguageGo,
			StatusCode:  http.StatusNotFound,
			Description: "The category must exist.",
		},
		{
			Enforced:    true,
			Text:        "The category must not be blank.",
			Language:    contract.LanguageGo,
			StatusCode:  contract.DefaultPreconditionStatus,
			Description: "The category must not be blank.",
			Synthetic:   true,
		},
	}, record.Preconditions)

	assert.Equal(t, []contract.SnapshotDescriptor{
		{Name: "count", Enabled: true, Text: "countBooks", Language: contract.LanguageGo},
	}, record.Snapshots)

	assert.Equal(t, []contract.ContractDescriptor{
		{
			Enforced:   false,
			Text:       "authorsExist",
			Language:   contract.LanguageGo,
			StatusCode: contract.DefaultPostconditionStatus,
		},
		{
			Enforced:   true,
			Text:       "<anonymous>",
			Language:   contract.LanguageGo,
			StatusCode: contract.DefaultPostconditionStatus,
			Synthetic:  true,
		},
	}, record.Postconditions)

	fromEndpoint, ok := reg.Metadata(endpoint)
	require.True(t, ok)
	assert.Equal(t, record, fromEndpoint, "the checker and the wrapped handler share one record")
}

func Test_Registry_MetadataIsIndependentOfEnforcement(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	endpoint := givenBooksEndpoint()
	check := contract.Check(hasCategory, "category")

	// act
	h := helper.GivenDecorated(t, endpoint,
		reg.Require(check, contract.Enforced(false)),
		reg.Require(check, contract.Undocumented()),
	)

	// assert
	record, ok := reg.Metadata(h)
	require.True(t, ok)
	require.Len(t, record.Preconditions, 1)
	assert.False(t, record.Preconditions[0].Enforced)

	checker, ok := contract.FindChecker(h)
	require.True(t, ok)
	assert.Len(t, checker.Preconditions(), 1)
}

func Test_Registry_MetadataIsACopy(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	h := helper.GivenDecorated(t, givenBooksEndpoint(), reg.Require(contract.Check(hasCategory, "category")))

	// act
	record, _ := reg.Metadata(h)
	record.Preconditions[0].Text = "changed"

	// assert
	again, _ := reg.Metadata(h)
	assert.Equal(t, "hasCategory", again.Preconditions[0].Text)
	assert.NotNil(t, again.Snapshots)
	assert.NotNil(t, again.Postconditions)
}

func Test_Registry_MetadataOfUndecoratedHandler(t *testing.T) {
	reg := helper.GivenRegistry(t)

	record, ok := reg.Metadata(givenBooksEndpoint())

	assert.False(t, ok)
	assert.True(t, record.IsEmpty())
}

func Test_Registry_GetOrCreateMetadata(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	endpoint := givenBooksEndpoint()

	// act
	created, err := reg.GetOrCreateMetadata(endpoint)
	require.NoError(t, err)
	again, err := reg.GetOrCreateMetadata(endpoint)
	require.NoError(t, err)

	_, notComparable := reg.GetOrCreateMetadata(contract.HandlerFunc(func(_ context.Context, _ contract.Args) (any, error) {
		return nil, nil
	}))
	_, nilHandler := reg.GetOrCreateMetadata(nil)

	// assert
	assert.Same(t, created, again)
	assert.ErrorIs(t, notComparable, contract.ErrHandlerNotComparable)
	assert.ErrorIs(t, nilHandler, contract.ErrNilHandler)
}

func Test_Registry_DecoratesHandlerFuncs(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	fn := contract.HandlerFunc(func(_ context.Context, args contract.Args) (any, error) {
		return args["category"], nil
	})

	// act
	h := helper.GivenDecorated(t, fn, reg.Require(contract.Check(hasCategory, "category")))
	result, err := h.Handle(context.Background(), contract.Args{"category": "science"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "science", result)

	record, ok := reg.Metadata(h)
	require.True(t, ok)
	assert.Len(t, record.Preconditions, 1)
}

func Test_Registry_ConfigurationErrors(t *testing.T) {
	okCondition := contract.Check(authorsExist)
	okCapture := contract.CaptureFunc(countBooks)

	tests := []struct {
		name        string
		handler     contract.Handler
		decorators  func(reg *contract.Registry) []contract.Decorator
		expectedErr error
	}{
		{
			name:    "nil handler",
			handler: nil,
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Require(okCondition)}
			},
			expectedErr: contract.ErrNilHandler,
		},
		{
			name: "zero condition",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Require(contract.Condition{})}
			},
			expectedErr: contract.ErrNilCondition,
		},
		{
			name: "nil predicate",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Ensure(contract.Check(nil))}
			},
			expectedErr: contract.ErrNilCondition,
		},
		{
			name: "status code out of range",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Require(okCondition, contract.WithStatusCode(42))}
			},
			expectedErr: contract.ErrInvalidStatusCode,
		},
		{
			name: "unknown parameter",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Require(contract.Check(authorsExist, "author"))}
			},
			expectedErr: contract.ErrUnknownParameter,
		},
		{
			name: "result in precondition",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Require(contract.Check(authorsExist, contract.ResultName))}
			},
			expectedErr: contract.ErrReservedParameter,
		},
		{
			name: "OLD in precondition",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Require(contract.Check(authorsExist, "OLD.count"))}
			},
			expectedErr: contract.ErrReservedParameter,
		},
		{
			name: "result in capture",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{
					reg.Snapshot(contract.CaptureFunc(countBooks, contract.ResultName), "count"),
					reg.Ensure(okCondition),
				}
			},
			expectedErr: contract.ErrReservedParameter,
		},
		{
			name: "snapshot without postcondition",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Snapshot(okCapture, "count")}
			},
			expectedErr: contract.ErrSnapshotWithoutPostcondition,
		},
		{
			name: "snapshot listed below its postcondition",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Ensure(okCondition), reg.Snapshot(okCapture, "count")}
			},
			expectedErr: contract.ErrSnapshotWithoutPostcondition,
		},
		{
			name: "empty snapshot name",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Snapshot(okCapture, ""), reg.Ensure(okCondition)}
			},
			expectedErr: contract.ErrEmptySnapshotName,
		},
		{
			name: "zero capture",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Snapshot(contract.Capture{}, "count"), reg.Ensure(okCondition)}
			},
			expectedErr: contract.ErrNilCapture,
		},
		{
			name: "duplicate snapshot",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{
					reg.Snapshot(okCapture, "count"),
					reg.Snapshot(okCapture, "count"),
					reg.Ensure(okCondition),
				}
			},
			expectedErr: contract.ErrDuplicateSnapshot,
		},
		{
			name: "duplicate of a disabled snapshot",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{
					reg.Snapshot(okCapture, "count"),
					reg.Snapshot(okCapture, "count", contract.Enabled(false)),
					reg.Ensure(okCondition),
				}
			},
			expectedErr: contract.ErrDuplicateSnapshot,
		},
		{
			name: "duplicate of a disabled undocumented snapshot",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{
					reg.Snapshot(okCapture, "count"),
					reg.Snapshot(okCapture, "count", contract.Enabled(false), contract.UndocumentedSnapshot()),
					reg.Ensure(okCondition),
				}
			},
			expectedErr: contract.ErrDuplicateSnapshot,
		},
		{
			name: "postcondition on a snapshot that is not captured",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{reg.Ensure(contract.Check(authorsExist, "OLD.count"))}
			},
			expectedErr: contract.ErrUnknownSnapshot,
		},
		{
			name: "postcondition on a disabled snapshot",
			decorators: func(reg *contract.Registry) []contract.Decorator {
				return []contract.Decorator{
					reg.Snapshot(okCapture, "count", contract.Enabled(false)),
					reg.Ensure(contract.Check(authorsExist, "OLD.count")),
				}
			},
			expectedErr: contract.ErrUnknownSnapshot,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			reg := helper.GivenRegistry(t)
			handler := tc.handler
			if tc.name != "nil handler" {
				handler = givenBooksEndpoint()
			}

			// act
			h, err := contract.Apply(handler, tc.decorators(reg)...)

			// assert
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Nil(t, h)
		})
	}
}

func Test_Registry_DisabledSnapshotIsOnlyDocumented(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	calls := 0
	capture := contract.CaptureFunc(func(_ context.Context, _ contract.Values) (any, error) {
		calls++
		return 1, nil
	}).WithText("count()")

	// act
	h := helper.GivenDecorated(t, givenBooksEndpoint(),
		reg.Snapshot(capture, "count", contract.Enabled(false)),
	)
	_, err := h.Handle(context.Background(), contract.Args{"category": "fiction"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	record, ok := reg.Metadata(h)
	require.True(t, ok)
	assert.Equal(t, []contract.SnapshotDescriptor{
		{Name: "count", Enabled: false, Text: "count()", Language: contract.LanguageGo},
	}, record.Snapshots)
}

func Test_Registry_ValidateChecksAllCheckers(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	endpoint := givenBooksEndpoint()
	helper.GivenDecorated(t, endpoint, reg.Snapshot(contract.CaptureFunc(countBooks), "count"), reg.Ensure(contract.Check(authorsExist)))

	// act
	err := reg.Validate()

	// assert
	assert.NoError(t, err)
}

func Test_Registry_LogsRegistrations(t *testing.T) {
	// arrange
	reg, spies := helper.GivenRegistryWithSpies(t)

	// act
	helper.GivenDecorated(t, givenBooksEndpoint(),
		reg.Require(contract.Check(hasCategory, "category")),
		reg.Ensure(contract.Check(authorsExist), contract.Enforced(false)),
	)

	// assert
	assert.Equal(t, 2, spies.Logs.CountLogs(slog.LevelDebug, "contract registered"))
	assert.Equal(t, 1, spies.Logs.CountLogs(slog.LevelDebug, "composed checker created"))
	assert.True(t, spies.Logs.HasDebugLogWithMessage("contract registered").
		WithAttribute("endpoint", "books_in_category").
		WithAttribute("kind", "precondition").
		WithAttribute("text", "hasCategory").
		Assert())
}
