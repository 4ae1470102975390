package beans

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func checkFunc(fn reflect.Value) (reflect.Type, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, errors.New("constructor must be a function")
	}
	if fn.IsNil() {
		return nil, errors.New("constructor cannot be nil")
	}
	sig := fn.Type()
	if sig.IsVariadic() {
		return nil, errors.New("constructor cannot be variadic")
	}
	if sig.NumOut() == 0 || sig.NumOut() > 2 {
		return nil, errors.New("constructor must return (T) or (T, error)")
	}
	if sig.NumOut() == 2 && !sig.Out(1).Implements(errorType) {
		return nil, errors.New("second return value must implement error")
	}
	return sig, nil
}

func paramsOf(sig reflect.Type) []reflect.Type {
	in := make([]reflect.Type, sig.NumIn())
	for i := range in {
		in[i] = sig.In(i)
	}
	return in
}

// injectParams turns function parameters into injection points.
func (c *config) injectParams(params []reflect.Type) error {
	for i, p := range params {
		if c.all[i] {
			if p.Kind() != reflect.Slice {
				return fmt.Errorf("dependency %d must be a slice to inject all beans, got %s", i, p)
			}
			p = p.Elem()
		}
		c.injections = append(c.injections, InjectionPoint{Type: p})
	}
	return c.applyIndexed()
}

// argValues converts resolved arguments to call values for params. Values
// for All points arrive as []any and are copied into a slice of the
// parameter's type.
func argValues(params []reflect.Type, points []InjectionPoint, args []any) []reflect.Value {
	values := make([]reflect.Value, len(params))
	for i, p := range params {
		switch {
		case args[i] == nil:
			values[i] = reflect.Zero(p)
		case points[i].All:
			all := args[i].([]any)
			s := reflect.MakeSlice(p, len(all), len(all))
			for j, v := range all {
				s.Index(j).Set(reflect.ValueOf(v))
			}
			values[i] = s
		default:
			values[i] = reflect.ValueOf(args[i])
		}
	}
	return values
}

func call(fn reflect.Value, in []reflect.Value) (any, error) {
	out := fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	if isNil(out[0]) {
		return nil, errNilInstance
	}
	return out[0].Interface(), nil
}

var errNilInstance = errors.New("constructor returned a nil instance")

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	case reflect.Invalid:
		return true
	}
	return false
}

// funcName returns the package-qualified name of fn without its import path.
func funcName(fn reflect.Value) string {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
