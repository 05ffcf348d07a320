package celcondition_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
	"github.com/AntonStoeckl/endpoint-contracts-go/contract/celcondition"
	"github.com/AntonStoeckl/endpoint-contracts-go/testutil/helper"
)

func givenCountingEndpoint(count *int) *contract.Endpoint {
	return contract.NewEndpoint("upsert_book", func(_ context.Context, args contract.Args) (any, error) {
		*count++
		return *count, nil
	}, "category", "identifier")
}

func Test_Environment_ConditionDocumentsItsSource(t *testing.T) {
	// arrange
	env, err := celcondition.NewEnvironment([]string{"category"})
	require.NoError(t, err)

	// act
	condition, err := env.Condition(`category != ""`)

	// assert
	require.NoError(t, err)
	assert.Equal(t, `category != ""`, condition.Text())
	assert.Equal(t, celcondition.Language, condition.Language())
	assert.Equal(t, []string{"category"}, condition.Params())
	assert.Empty(t, condition.OldFields())
}

func Test_Environment_DeclaresSnapshotDependencies(t *testing.T) {
	// arrange
	env, err := celcondition.NewEnvironment([]string{"identifier"})
	require.NoError(t, err)

	// act
	condition, err := env.Condition(`result == OLD.count + 1 || OLD.has_book`)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{contract.ResultName, contract.OldName}, condition.Params())
	assert.Equal(t, []string{"count", "has_book"}, condition.OldFields())
}

func Test_Environment_DeclaresSnapshotDependencies_IndexAndSelectForms(t *testing.T) {
	env, err := celcondition.NewEnvironment([]string{"identifier"})
	require.NoError(t, err)

	tests := []struct {
		name           string
		expr           string
		expectedFields []string
	}{
		{name: "index", expr: `OLD["count"] == size(result)`, expectedFields: []string{"count"}},
		{name: "index and select", expr: `OLD["count"] < result && OLD.has_book`, expectedFields: []string{"count", "has_book"}},
		{name: "name inside a string literal", expr: `identifier != "OLD.count" && OLD.has_book`, expectedFields: []string{"has_book"}},
		{name: "presence test", expr: `has(OLD.count)`, expectedFields: []string{}},
		{name: "computed key", expr: `OLD[identifier] == result`, expectedFields: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			condition, err := env.Condition(tc.expr)

			require.NoError(t, err)
			assert.Contains(t, condition.Params(), contract.OldName)
			assert.ElementsMatch(t, tc.expectedFields, condition.OldFields())
		})
	}
}

func Test_Environment_IndexedSnapshotMustBeCapturedWhenDecorating(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	count := 0
	endpoint := givenCountingEndpoint(&count)
	env, err := celcondition.ForHandler(endpoint)
	require.NoError(t, err)

	capture, err := env.Capture(`1`)
	require.NoError(t, err)
	sameCount, err := env.Condition(`OLD["count"] == result`)
	require.NoError(t, err)

	// act
	_, err = contract.Apply(endpoint,
		reg.Snapshot(capture, "count", contract.Enabled(false)),
		reg.Ensure(sameCount),
	)

	// assert
	assert.ErrorIs(t, err, contract.ErrUnknownSnapshot)
	assert.Equal(t, 0, count)
}

func Test_Environment_RejectsInvalidExpressions(t *testing.T) {
	env, err := celcondition.NewEnvironment([]string{"category"})
	require.NoError(t, err)

	tests := []struct {
		name        string
		expr        string
		expectedErr error
	}{
		{name: "empty", expr: "", expectedErr: celcondition.ErrEmptyExpression},
		{name: "undeclared identifier", expr: `author != ""`, expectedErr: celcondition.ErrCompile},
		{name: "syntax error", expr: `category !=`, expectedErr: celcondition.ErrCompile},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Condition(tc.expr)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_Environment_InvalidOptions(t *testing.T) {
	_, err := celcondition.NewEnvironment(nil, celcondition.WithCostLimit(0))

	assert.Error(t, err)
}

func Test_Environment_EnforcedThroughTheChecker(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	count := 0
	endpoint := givenCountingEndpoint(&count)

	env, err := celcondition.ForHandler(endpoint, celcondition.WithCostLimit(1000), celcondition.WithInterruptCheckFrequency(10))
	require.NoError(t, err)

	nonBlank, err := env.Condition(`category != ""`)
	require.NoError(t, err)
	countBefore, err := env.Capture(`1 + 1`)
	require.NoError(t, err)
	grew, err := env.Condition(`result > OLD.count`)
	require.NoError(t, err)

	h := helper.GivenDecorated(t, endpoint,
		reg.Require(nonBlank, contract.WithStatusCode(http.StatusBadRequest), contract.WithDescription("The category must not be blank.")),
		reg.Snapshot(countBefore, "count"),
		reg.Ensure(grew),
	)

	// act
	_, violated := h.Handle(context.Background(), contract.Args{"category": ""})
	_, first := h.Handle(context.Background(), contract.Args{"category": "fiction"})
	_, second := h.Handle(context.Background(), contract.Args{"category": "fiction"})
	third, thirdErr := h.Handle(context.Background(), contract.Args{"category": "fiction"})

	// assert
	violation, ok := contract.AsViolation(violated)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, violation.StatusCode)
	assert.Equal(t, `category != ""`, violation.Text)

	assert.True(t, contract.IsViolation(first), "1 is not greater than the captured 2")
	assert.True(t, contract.IsViolation(second), "2 is not greater than the captured 2")
	require.NoError(t, thirdErr)
	assert.Equal(t, 3, third)

	record, ok := reg.Metadata(h)
	require.True(t, ok)
	assert.Equal(t, "cel", record.Preconditions[0].Language)
	assert.Equal(t, `1 + 1`, record.Snapshots[0].Text)
	assert.Equal(t, `result > OLD.count`, record.Postconditions[0].Text)
}

func Test_Environment_AbsentArgumentIsNull(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	count := 0
	endpoint := givenCountingEndpoint(&count)
	env, err := celcondition.ForHandler(endpoint)
	require.NoError(t, err)

	present, err := env.Condition(`identifier != null`)
	require.NoError(t, err)

	h := helper.GivenDecorated(t, endpoint, reg.Require(present))

	// act
	_, err = h.Handle(context.Background(), contract.Args{"category": "fiction"})

	// assert
	assert.True(t, contract.IsViolation(err))
}

func Test_Environment_NonBooleanConditionFails(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	count := 0
	endpoint := givenCountingEndpoint(&count)
	env, err := celcondition.ForHandler(endpoint)
	require.NoError(t, err)

	notBool, err := env.Condition(`category + "!"`)
	require.NoError(t, err)

	h := helper.GivenDecorated(t, endpoint, reg.Require(notBool))

	// act
	_, err = h.Handle(context.Background(), contract.Args{"category": "fiction"})

	// assert
	assert.ErrorIs(t, err, celcondition.ErrNotBoolean)
	assert.Equal(t, 0, count)
}

func Test_Environment_ReservedNamesAreRejectedInPreconditions(t *testing.T) {
	// arrange
	reg := helper.GivenRegistry(t)
	count := 0
	endpoint := givenCountingEndpoint(&count)
	env, err := celcondition.ForHandler(endpoint)
	require.NoError(t, err)

	usesResult, err := env.Condition(`result > 0`)
	require.NoError(t, err)

	// act
	_, err = contract.Apply(endpoint, reg.Require(usesResult))

	// assert
	assert.ErrorIs(t, err, contract.ErrReservedParameter)
}
