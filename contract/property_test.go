package contract_test

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
)

// Property: for any chain of pre- and post-conditions, the conditions run in declaration order,
// and a failing one stops the chain and is the one reported.
func Test_Property_ShortCircuitInDeclarationOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("evaluation stops at the first false condition", prop.ForAll(
		func(pre []bool, post []bool) bool {
			reg, err := contract.NewRegistry()
			if err != nil {
				return false
			}

			tr := &tracker{}
			decorators := make([]contract.Decorator, 0, len(pre)+len(post)+1)
			for i, outcome := range pre {
				decorators = append(decorators, reg.Require(tr.condition(fmt.Sprintf("pre%d", i), outcome)))
			}
			for i, outcome := range post {
				decorators = append(decorators, reg.Ensure(tr.condition(fmt.Sprintf("post%d", i), outcome)))
			}

			h, err := contract.Apply(tr.endpoint("ok"), decorators...)
			if err != nil {
				return false
			}

			_, err = h.Handle(context.Background(), contract.Args{})

			var expected []string
			failed := ""
			for i, outcome := range pre {
				expected = append(expected, fmt.Sprintf("pre%d", i))
				if !outcome {
					failed = fmt.Sprintf("pre%d", i)
					break
				}
			}
			if failed == "" {
				expected = append(expected, "handler")
				for i, outcome := range post {
					expected = append(expected, fmt.Sprintf("post%d", i))
					if !outcome {
						failed = fmt.Sprintf("post%d", i)
						break
					}
				}
			}

			if !slices.Equal(expected, tr.order) {
				return false
			}

			if failed == "" {
				return err == nil
			}

			violation, ok := contract.AsViolation(err)

			return ok && violation.Text == failed
		},
		gen.SliceOf(gen.Bool()),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// Property: metadata documents every contract in declaration order, whether enforced or not,
// and the checker holds exactly the enforced ones.
func Test_Property_MetadataIndependentOfEnforcement(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("documented contracts equal declared contracts", prop.ForAll(
		func(enforced []bool) bool {
			reg, err := contract.NewRegistry()
			if err != nil {
				return false
			}

			calls := 0
			decorators := make([]contract.Decorator, 0, len(enforced))
			for i, enabled := range enforced {
				condition := contract.Check(func(_ context.Context, _ contract.Values) (bool, error) {
					calls++
					return true, nil
				}).WithText(fmt.Sprintf("c%d", i))

				decorators = append(decorators, reg.Require(condition, contract.Enforced(enabled)))
			}

			h, err := contract.Apply(givenBooksEndpoint(), decorators...)
			if err != nil {
				return false
			}

			if _, err = h.Handle(context.Background(), contract.Args{}); err != nil {
				return false
			}

			record, _ := reg.Metadata(h)
			if len(record.Preconditions) != len(enforced) {
				return false
			}

			enforcedCount := 0
			for i, descriptor := range record.Preconditions {
				if descriptor.Text != fmt.Sprintf("c%d", i) || descriptor.Enforced != enforced[i] {
					return false
				}
				if enforced[i] {
					enforcedCount++
				}
			}

			checkerCount := 0
			if checker, ok := contract.FindChecker(h); ok {
				checkerCount = len(checker.Preconditions())
			}

			return checkerCount == enforcedCount && calls == enforcedCount
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// Property: for any handler that mutates shared state, OLD holds the value captured before
// the handler ran, and every invocation captures afresh.
func Test_Property_OldCapturedBeforeTheHandler(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("OLD never reflects the handler's own changes", prop.ForAll(
		func(initial []int, added []int) bool {
			reg, err := contract.NewRegistry()
			if err != nil {
				return false
			}

			books := append([]int(nil), initial...)
			endpoint := contract.NewEndpoint("add_books", func(_ context.Context, _ contract.Args) (any, error) {
				books = append(books, added...)
				return len(books), nil
			})

			var seen []any
			countBooks := contract.CaptureFunc(func(_ context.Context, _ contract.Values) (any, error) {
				return len(books), nil
			})
			grewByAdded := contract.Check(func(_ context.Context, values contract.Values) (bool, error) {
				old := values.Old().Value("count")
				seen = append(seen, old)

				return values.Result() == old.(int)+len(added), nil
			}, contract.ResultName, "OLD.count")

			h, err := contract.Apply(endpoint, reg.Snapshot(countBooks, "count"), reg.Ensure(grewByAdded))
			if err != nil {
				return false
			}

			if _, err = h.Handle(context.Background(), contract.Args{}); err != nil {
				return false
			}
			if _, err = h.Handle(context.Background(), contract.Args{}); err != nil {
				return false
			}

			return slices.Equal(seen, []any{len(initial), len(initial) + len(added)})
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}

// Property: decorating one handler repeatedly with n pre-conditions and m post-conditions
// yields one checker with chains of length n and m, the last decoration first.
func Test_Property_RepeatedDecorationComposesOneChecker(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("one checker per handler", prop.ForAll(
		func(n int, m int) bool {
			reg, err := contract.NewRegistry()
			if err != nil {
				return false
			}

			tr := &tracker{}
			endpoint := tr.endpoint("ok")
			checkers := make(map[*contract.Checker]struct{})

			var h contract.Handler = endpoint
			decorate := func(decorator contract.Decorator) bool {
				h, err = contract.Apply(h, decorator)
				if err != nil {
					return false
				}

				checker, ok := contract.FindChecker(h)
				checkers[checker] = struct{}{}

				return ok
			}

			for i := 0; i < m; i++ {
				if !decorate(reg.Ensure(tr.condition(fmt.Sprintf("post%d", i), true))) {
					return false
				}
			}
			for i := 0; i < n; i++ {
				if !decorate(reg.Require(tr.condition(fmt.Sprintf("pre%d", i), true))) {
					return false
				}
			}

			checker, ok := contract.FindChecker(h)
			if n+m == 0 {
				return !ok && h == contract.Handler(endpoint)
			}

			if !ok || len(checkers) != 1 || checker.Wrapped() != contract.Handler(endpoint) {
				return false
			}

			pre, post := checker.Preconditions(), checker.Postconditions()
			if len(pre) != n || len(post) != m {
				return false
			}

			for k := range pre {
				if pre[k].Condition.Text() != fmt.Sprintf("pre%d", n-1-k) {
					return false
				}
			}
			for k := range post {
				if post[k].Condition.Text() != fmt.Sprintf("post%d", m-1-k) {
					return false
				}
			}

			if _, err = h.Handle(context.Background(), contract.Args{}); err != nil {
				return false
			}

			return len(tr.order) == n+m+1
		},
		gen.IntRange(0, 8),
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}
