package contract

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Decorator attaches one contract to a handler and returns the handler to register instead.
type Decorator func(h Handler) (Handler, error)

// Registry keeps the composed checkers and the metadata records of decorated handlers,
// keyed by handler identity. Decorate handlers during application assembly; afterward
// the registry is only read.
type Registry struct {
	mu       sync.RWMutex
	checkers map[Handler]*Checker
	records  map[Handler]*Record
	in       *instrumentation

	// snapshotNames holds every snapshot name decorated on a handler, whatever its flags.
	snapshotNames map[Handler]map[string]struct{}
}

// NewRegistry creates an empty Registry with optional configuration.
func NewRegistry(options ...Option) (*Registry, error) {
	r := &Registry{
		checkers:      make(map[Handler]*Checker),
		records:       make(map[Handler]*Record),
		snapshotNames: make(map[Handler]map[string]struct{}),
		in:            &instrumentation{},
	}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Apply decorates h with decorators and validates the resulting checker.
// Decorators are applied right-to-left: the first one listed is the outermost,
// so its condition is evaluated and documented first.
func Apply(h Handler, decorators ...Decorator) (Handler, error) {
	if isNilHandler(h) {
		return nil, ErrNilHandler
	}

	for i := len(decorators) - 1; i >= 0; i-- {
		decorated, err := decorators[i](h)
		if err != nil {
			return nil, err
		}

		h = decorated
	}

	if checker, ok := FindChecker(h); ok {
		if err := checker.Validate(); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Require returns a decorator adding a pre-condition.
// Without WithStatusCode, a violation reports DefaultPreconditionStatus.
func (r *Registry) Require(condition Condition, options ...ContractOption) Decorator {
	settings := newContractSettings(DefaultPreconditionStatus, options)

	return func(h Handler) (Handler, error) {
		return r.decorateCondition(h, KindPrecondition, condition, settings)
	}
}

// Ensure returns a decorator adding a post-condition.
// Without WithStatusCode, a violation reports DefaultPostconditionStatus.
func (r *Registry) Ensure(condition Condition, options ...ContractOption) Decorator {
	settings := newContractSettings(DefaultPostconditionStatus, options)

	return func(h Handler) (Handler, error) {
		return r.decorateCondition(h, KindPostcondition, condition, settings)
	}
}

// Snapshot returns a decorator capturing a named value before the handler runs.
// An enabled snapshot requires a checker created by a post-condition decorated before.
func (r *Registry) Snapshot(capture Capture, name string, options ...SnapshotOption) Decorator {
	settings := snapshotSettings{enabled: true, documented: true}
	for _, option := range options {
		option(&settings)
	}

	return func(h Handler) (Handler, error) {
		return r.decorateSnapshot(h, capture, name, settings)
	}
}

// FindChecker returns the composed checker of h, if one was created.
func (r *Registry) FindChecker(h Handler) (*Checker, bool) {
	if checker, ok := FindChecker(h); ok {
		return checker, true
	}

	if isNilHandler(h) || !isComparable(h) {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	checker, ok := r.checkers[h]

	return checker, ok
}

// Metadata returns a copy of the metadata record of h.
// It has no side effects and is safe to call at any time.
func (r *Registry) Metadata(h Handler) (Record, bool) {
	if isNilHandler(h) || !isComparable(h) {
		return Record{}, false
	}

	key := identityOf(h)

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[key]
	if !ok {
		return Record{}, false
	}

	return record.Clone(), true
}

// GetOrCreateMetadata returns the metadata record attached to h, creating it if needed.
// The checker and the handler it wraps share one record.
func (r *Registry) GetOrCreateMetadata(h Handler) (*Record, error) {
	if isNilHandler(h) {
		return nil, ErrNilHandler
	}

	if !isComparable(h) {
		return nil, ErrHandlerNotComparable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.getOrCreateRecord(h), nil
}

// Validate validates every composed checker of the registry.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, checker := range r.checkers {
		if err := checker.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) decorateCondition(h Handler, kind Kind, condition Condition, settings contractSettings) (Handler, error) {
	if isNilHandler(h) {
		return nil, ErrNilHandler
	}

	if condition.IsZero() {
		return nil, ErrNilCondition
	}

	if settings.statusCode < 100 || settings.statusCode > 599 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatusCode, settings.statusCode)
	}

	h = identifiable(h)

	if err := validateParams(h, kind, condition.text, condition.params); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := h

	if settings.enforced {
		checker := r.findOrCreateChecker(h)
		contract := Contract{Condition: condition, StatusCode: settings.statusCode, Description: settings.description}

		if kind == KindPrecondition {
			checker.prependPrecondition(contract)
		} else {
			checker.prependPostcondition(contract)
		}

		result = checker
	}

	text, synthetic := condition.documentedText(settings.description)

	if settings.documented {
		descriptor := ContractDescriptor{
			Enforced:    settings.enforced,
			Text:        text,
			Language:    condition.language,
			StatusCode:  settings.statusCode,
			Description: settings.description,
			Synthetic:   synthetic,
		}

		record := r.getOrCreateRecord(result)
		if kind == KindPrecondition {
			record.prependPrecondition(descriptor)
		} else {
			record.prependPostcondition(descriptor)
		}
	}

	r.in.logDebug(context.Background(), logMsgContractRegistered,
		logAttrEndpoint, handlerName(result),
		logAttrKind, kind.String(),
		logAttrText, text,
		logAttrEnforced, settings.enforced,
		logAttrDocumented, settings.documented)

	return result, nil
}

func (r *Registry) decorateSnapshot(h Handler, capture Capture, name string, settings snapshotSettings) (Handler, error) {
	if isNilHandler(h) {
		return nil, ErrNilHandler
	}

	if capture.IsZero() {
		return nil, ErrNilCapture
	}

	if name == "" {
		return nil, ErrEmptySnapshotName
	}

	h = identifiable(h)

	if err := validateParams(h, 0, capture.text, capture.params); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	checker, hasChecker := r.lookupChecker(h)
	identity := identityOf(h)

	names, ok := r.snapshotNames[identity]
	if _, duplicate := names[name]; duplicate {
		return nil, fmt.Errorf("%w: %q on %s", ErrDuplicateSnapshot, name, handlerName(h))
	}

	result := h

	if settings.enabled {
		if !hasChecker {
			return nil, fmt.Errorf("%w: %q on %s", ErrSnapshotWithoutPostcondition, name, handlerName(h))
		}

		checker.prependSnapshot(Snapshot{Name: name, Capture: capture})
		result = checker
	}

	if !ok {
		names = make(map[string]struct{})
		r.snapshotNames[identity] = names
	}
	names[name] = struct{}{}

	text, synthetic := fallbackText(capture.text, capture.synthetic, "")

	if settings.documented {
		r.getOrCreateRecord(result).prependSnapshot(SnapshotDescriptor{
			Name:      name,
			Enabled:   settings.enabled,
			Text:      text,
			Language:  capture.language,
			Synthetic: synthetic,
		})
	}

	r.in.logDebug(context.Background(), logMsgSnapshotRegistered,
		logAttrEndpoint, handlerName(result),
		logAttrSnapshot, name,
		logAttrText, text,
		logAttrEnforced, settings.enabled,
		logAttrDocumented, settings.documented)

	return result, nil
}

// findOrCreateChecker must be called with the write lock held.
func (r *Registry) findOrCreateChecker(h Handler) *Checker {
	if checker, ok := r.lookupChecker(h); ok {
		return checker
	}

	checker := newChecker(h, r.in)
	r.checkers[h] = checker

	r.in.logDebug(context.Background(), logMsgCheckerCreated, logAttrEndpoint, checker.name)

	return checker
}

// lookupChecker must be called with a lock held.
func (r *Registry) lookupChecker(h Handler) (*Checker, bool) {
	if checker, ok := FindChecker(h); ok {
		return checker, true
	}

	checker, ok := r.checkers[h]

	return checker, ok
}

// getOrCreateRecord must be called with the write lock held.
func (r *Registry) getOrCreateRecord(h Handler) *Record {
	key := identityOf(h)

	record, ok := r.records[key]
	if !ok {
		record = &Record{}
		r.records[key] = record
	}

	return record
}

func newContractSettings(defaultStatus int, options []ContractOption) contractSettings {
	settings := contractSettings{statusCode: defaultStatus, enforced: true, documented: true}
	for _, option := range options {
		option(&settings)
	}

	return settings
}

// validateParams checks the declared params of a condition (kind != 0) or capture (kind == 0).
func validateParams(h Handler, kind Kind, text string, params []string) error {
	declared, hasDeclared := handlerParams(h)
	known := make(map[string]struct{}, len(declared))
	for _, name := range declared {
		known[name] = struct{}{}
	}

	for _, param := range params {
		if param == ResultName || param == OldName {
			if kind != KindPostcondition {
				return fmt.Errorf("%w: %q in %q of %s", ErrReservedParameter, param, text, handlerName(h))
			}

			continue
		}

		if !hasDeclared {
			continue
		}

		if _, ok := known[param]; !ok {
			return fmt.Errorf("%w: %q in %q of %s", ErrUnknownParameter, param, text, handlerName(h))
		}
	}

	return nil
}

// identityOf maps a checker to the handler it wraps, so both share one metadata record.
func identityOf(h Handler) Handler {
	if checker, ok := FindChecker(h); ok {
		return checker.wrapped
	}

	return h
}

func isComparable(h Handler) bool {
	return reflect.TypeOf(h).Comparable()
}

func isNilHandler(h Handler) bool {
	if h == nil {
		return true
	}

	value := reflect.ValueOf(h)
	switch value.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Interface, reflect.Slice, reflect.Chan:
		return value.IsNil()
	default:
		return false
	}
}
