package beans

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Factory returns a definition produced by calling method on the instance of
// owner. The method's first parameter receives the owner instance, so method
// expressions such as (*Config).Executor fit directly; an optional
// context.Context may follow it, and every remaining parameter is a
// dependency resolved by type. The produced bean is only eligible while the
// owner's conditions hold as well as its own.
func Factory(owner Reference, method any, opts ...Option) (*Definition, error) {
	fn := reflect.ValueOf(method)
	sig, err := checkFunc(fn)
	if err != nil {
		return nil, &InvalidDefinitionError{Bean: fmt.Sprintf("%T", method), Err: err}
	}
	if owner == nil || isNilReference(owner) {
		return nil, &InvalidDefinitionError{Bean: funcName(fn), Err: errors.New("factory owner cannot be nil")}
	}

	in := paramsOf(sig)
	if len(in) == 0 {
		return nil, &InvalidDefinitionError{Bean: funcName(fn), Err: errors.New("factory method must take the owner as its first parameter")}
	}
	if !owner.ProducedType().AssignableTo(in[0]) {
		return nil, &InvalidDefinitionError{
			Bean: funcName(fn),
			Err:  fmt.Errorf("owner type %s cannot be passed as %s", owner.ProducedType(), in[0]),
		}
	}
	ownerType := in[0]
	in = in[1:]

	passCtx := len(in) > 0 && in[0] == contextType
	if passCtx {
		in = in[1:]
	}

	c := newConfig(sig.Out(0), append([]Option{WithName(funcName(fn))}, opts...))
	c.owner = owner
	if err := c.injectParams(in); err != nil {
		return nil, &InvalidDefinitionError{Bean: c.Name(), Err: err}
	}

	points := c.injections
	return c.definition(func(ctx context.Context, ownerInstance any, args []any) (any, error) {
		values := make([]reflect.Value, 0, sig.NumIn())
		if ownerInstance == nil {
			values = append(values, reflect.Zero(ownerType))
		} else {
			values = append(values, reflect.ValueOf(ownerInstance))
		}
		if passCtx {
			values = append(values, reflect.ValueOf(&ctx).Elem())
		}
		values = append(values, argValues(in, points, args)...)
		return call(fn, values)
	})
}
