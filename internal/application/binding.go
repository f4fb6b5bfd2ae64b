package application

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rafaelDom/TestJuridoc/internal/util"
)

// FilterFunc is the signature of filter methods.
type FilterFunc[I, O any] func(ctx context.Context, m *Match[I, O]) (bool, error)

// ProcessFunc is the signature of processor methods.
type ProcessFunc[I, O any] func(ctx context.Context, m *Match[I, O]) error

// ProcessHook wraps processor invocation. Hooks run before the granted
// check, so a hook may answer the step itself or advance the cursor.
type ProcessHook[I, O any] func(next ProcessFunc[I, O]) ProcessFunc[I, O]

func lookupMethod(instance any, name string) (reflect.Value, bool) {
	v := reflect.ValueOf(instance)
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	m := v.MethodByName(name)
	return m, m.IsValid()
}

func bindFilter[I, O any](t *Type, instance any, name string) (FilterFunc[I, O], error) {
	m, ok := lookupMethod(instance, name)
	if ok {
		if fn, ok := m.Interface().(func(context.Context, *Match[I, O]) (bool, error)); ok {
			return fn, nil
		}
	}
	return nil, util.NewConfigError(
		fmt.Sprintf("type.%s.%s", t.Name, name),
		"only methods are allowed for filters",
	)
}

func bindProcessor[I, O any](t *Type, instance any, name string) (ProcessFunc[I, O], error) {
	m, ok := lookupMethod(instance, name)
	if ok {
		if fn, ok := m.Interface().(func(context.Context, *Match[I, O]) error); ok {
			return fn, nil
		}
	}
	return nil, util.NewConfigError(
		fmt.Sprintf("type.%s.%s", t.Name, name),
		"only methods are allowed for processors",
	)
}
