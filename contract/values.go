package contract

import (
	"sort"
)

// Args holds the named argument values of one handler invocation.
type Args map[string]any

// Values holds the named values a condition or capture function declared.
// Post-conditions may additionally find the handler result under ResultName
// and the snapshot bag (*Old) under OldName.
type Values map[string]any

// Get returns the value stored under name.
func (v Values) Get(name string) (any, bool) {
	value, ok := v[name]
	return value, ok
}

// Result returns the handler result, if the condition declared it.
func (v Values) Result() any {
	return v[ResultName]
}

// Old returns the snapshot bag, if the condition declared it.
// It never returns nil.
func (v Values) Old() *Old {
	if old, ok := v[OldName].(*Old); ok && old != nil {
		return old
	}

	return emptyOld
}

// Old is the per-invocation bag of values captured by snapshots before the handler ran.
// It is built once during snapshot capture and read-only afterward.
type Old struct {
	values map[string]any
}

var emptyOld = &Old{values: map[string]any{}}

func newOld(values map[string]any) *Old {
	return &Old{values: values}
}

// Get returns the captured value for name.
func (o *Old) Get(name string) (any, bool) {
	if o == nil {
		return nil, false
	}

	value, ok := o.values[name]

	return value, ok
}

// Value returns the captured value for name, or nil.
func (o *Old) Value(name string) any {
	value, _ := o.Get(name)
	return value
}

// Len returns the number of captured values.
func (o *Old) Len() int {
	if o == nil {
		return 0
	}

	return len(o.values)
}

// Names returns the captured snapshot names in sorted order.
func (o *Old) Names() []string {
	if o == nil {
		return nil
	}

	names := make([]string, 0, len(o.values))
	for name := range o.values {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Map returns a copy of the captured values.
func (o *Old) Map() map[string]any {
	out := make(map[string]any, o.Len())
	if o == nil {
		return out
	}

	for name, value := range o.values {
		out[name] = value
	}

	return out
}
