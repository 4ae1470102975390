package beans

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/centraunit/beans/order"
	"go.uber.org/zap"
)

// ResolvedInstance is a materialized bean and the definition that produced
// it. Singleton instances remain owned by the container.
type ResolvedInstance struct {
	Instance   any
	Definition *Definition
}

// Resolve returns the single eligible bean assignable to t. A non-empty
// qualifier must match exactly; it never falls back to unqualified beans.
func (c *Container) Resolve(ctx context.Context, t reflect.Type, qualifier string) (any, error) {
	ri, err := c.ResolveInstance(ctx, t, qualifier)
	if err != nil {
		return nil, err
	}
	return ri.Instance, nil
}

// ResolveInstance is like Resolve but also reports the winning definition.
func (c *Container) ResolveInstance(ctx context.Context, t reflect.Type, qualifier string) (ResolvedInstance, error) {
	start := time.Now()
	ri, err := c.resolve(ctxOrBackground(ctx), Key{Type: t, Qualifier: qualifier})
	c.metrics.observeResolution(outcomeOf(err), start)
	return ri, err
}

// BeansOfType instantiates every eligible bean assignable to t and returns
// them in ascending precedence. An instance implementing order.Ordered is
// ordered by its own precedence, otherwise by its definition's. Beans that
// fail to instantiate are logged and left out.
func (c *Container) BeansOfType(ctx context.Context, t reflect.Type) []any {
	if c.closed.Load() || t == nil {
		return nil
	}
	return c.beansOfType(ctxOrBackground(ctx), t, "")
}

// ContainsBean reports whether an eligible bean assignable to t with the
// given qualifier is registered. It never instantiates anything.
func (c *Container) ContainsBean(ctx context.Context, t reflect.Type, qualifier string) bool {
	if c.closed.Load() || t == nil {
		return false
	}
	return c.containsBean(ctxOrBackground(ctx), Key{Type: t, Qualifier: qualifier})
}

// Resolve returns the bean of type T from c.
func Resolve[T any](ctx context.Context, c *Container, qualifier ...string) (T, error) {
	var zero T
	k := KeyOf[T](qualifier...)
	v, err := c.Resolve(ctx, k.Type, k.Qualifier)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: k.Type.String(), Got: reflect.TypeOf(v).String()}
	}
	return typed, nil
}

// BeansOfType returns every eligible bean of type T from c, in ascending
// precedence.
func BeansOfType[T any](ctx context.Context, c *Container) []T {
	all := c.BeansOfType(ctx, typeOf[T]())
	out := make([]T, 0, len(all))
	for _, v := range all {
		if typed, ok := v.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// ContainsBean reports whether c holds an eligible bean of type T.
func ContainsBean[T any](ctx context.Context, c *Container, qualifier ...string) bool {
	k := KeyOf[T](qualifier...)
	return c.ContainsBean(ctx, k.Type, k.Qualifier)
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (c *Container) resolve(ctx context.Context, key Key) (ResolvedInstance, error) {
	if c.closed.Load() {
		return ResolvedInstance{}, ErrClosed
	}
	if key.Type == nil {
		return ResolvedInstance{}, &NoSuchBeanError{Key: key}
	}
	ref, err := c.choose(ctx, key)
	if err != nil {
		return ResolvedInstance{}, err
	}
	return c.instantiate(ctx, ref)
}

// candidates returns the eligible references assignable to t in
// registration order.
func (c *Container) candidates(ctx context.Context, t reflect.Type) []Reference {
	var out []Reference
	for _, ref := range c.snapshot() {
		if c.types.assignable(ref.ProducedType(), t) && c.eligible(ctx, ref) {
			out = append(out, ref)
		}
	}
	return out
}

// eligible reports whether the conditions of ref and of its owners hold. A
// reference already under evaluation in ctx is ineligible, which stops
// mutually dependent bean conditions from recursing.
func (c *Container) eligible(ctx context.Context, ref Reference) bool {
	if evaluating(ctx, ref) {
		return false
	}
	ctx = withEvaluating(ctx, ref)
	if !evaluate(ctx, ref.Conditions(), c) {
		return false
	}
	if owner := ref.Owner(); owner != nil {
		return c.eligible(ctx, owner)
	}
	return true
}

func qualify(refs []Reference, qualifier string) []Reference {
	if qualifier == "" {
		return refs
	}
	return slices.DeleteFunc(refs, func(ref Reference) bool {
		return ref.Qualifier() != qualifier
	})
}

func (c *Container) containsBean(ctx context.Context, key Key) bool {
	return len(qualify(c.candidates(ctx, key.Type), key.Qualifier)) > 0
}

// choose picks the single reference satisfying key.
func (c *Container) choose(ctx context.Context, key Key) (Reference, error) {
	refs := qualify(c.candidates(ctx, key.Type), key.Qualifier)
	switch len(refs) {
	case 0:
		return nil, &NoSuchBeanError{Key: key}
	case 1:
		return refs[0], nil
	}

	var primaries []Reference
	for _, ref := range refs {
		if ref.IsPrimary() {
			primaries = append(primaries, ref)
		}
	}
	if len(primaries) == 1 {
		return primaries[0], nil
	}

	pool := refs
	if len(primaries) > 1 {
		pool = primaries
	}
	order.Sort(pool)
	if pool[0].Order() < pool[1].Order() {
		return pool[0], nil
	}

	var tied []string
	for _, ref := range pool {
		if ref.Order() != pool[0].Order() {
			break
		}
		tied = append(tied, ref.Name())
	}
	return nil, &NonUniqueBeanError{Key: key, Candidates: tied}
}

// instantiate returns the instance for ref, building it when it is not a
// published singleton. The key enters the chain before the singleton slot is
// claimed, so a cycle within one resolution fails without taking a lock.
// Dependencies of a singleton are resolved under its claim and therefore only
// once, however many callers race on it.
func (c *Container) instantiate(ctx context.Context, ref Reference) (ResolvedInstance, error) {
	if ref.Scope() == Singleton {
		if p, ok := c.cache.lookup(ref); ok {
			c.metrics.cacheHits.Inc()
			return ResolvedInstance{Instance: p.instance, Definition: p.def}, nil
		}
	}

	def, err := ref.Load()
	if err != nil {
		return ResolvedInstance{}, &BeanInstantiationError{Bean: ref.Name(), Err: err}
	}

	ctx, err = enter(withClaimant(ctx), def.Key())
	if err != nil {
		return ResolvedInstance{}, err
	}

	build := func(ctx context.Context) (any, error) {
		owner, args, err := c.resolveArgs(ctx, def)
		if err != nil {
			return nil, err
		}
		return c.construct(ctx, def, owner, args)
	}

	if def.scope == Prototype {
		instance, err := build(ctx)
		if err != nil {
			return ResolvedInstance{}, err
		}
		return ResolvedInstance{Instance: instance, Definition: def}, nil
	}

	p, created, err := c.cache.getOrCreate(ctx, ref, def, build)
	if err != nil {
		return ResolvedInstance{}, err
	}
	if !created {
		c.metrics.cacheHits.Inc()
	}
	return ResolvedInstance{Instance: p.instance, Definition: p.def}, nil
}

// resolveArgs resolves the factory owner, if any, and every injection point
// of def within the chain carried by ctx.
func (c *Container) resolveArgs(ctx context.Context, def *Definition) (owner any, args []any, err error) {
	if def.owner != nil {
		ri, err := c.instantiate(ctx, def.owner)
		if err != nil {
			return nil, nil, err
		}
		owner = ri.Instance
	}

	args = make([]any, len(def.injections))
	for i, p := range def.injections {
		if p.All {
			args[i] = c.beansOfType(ctx, p.Type, p.Qualifier)
			continue
		}
		ri, err := c.resolve(ctx, p.key())
		if err != nil {
			var missing *NoSuchBeanError
			if p.Optional && errors.As(err, &missing) && missing.Key == p.key() {
				continue
			}
			return nil, nil, err
		}
		args[i] = ri.Instance
	}
	return owner, args, nil
}

func (c *Container) construct(ctx context.Context, def *Definition, owner any, args []any) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BeanInstantiationError{Bean: def.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	instance, err = def.construct(ctx, owner, args)
	if err != nil {
		return nil, &BeanInstantiationError{Bean: def.Name(), Err: err}
	}
	if instance == nil {
		return nil, &BeanInstantiationError{Bean: def.Name(), Err: errNilInstance}
	}
	if got := reflect.TypeOf(instance); !c.types.assignable(got, def.typ) {
		return nil, &BeanInstantiationError{
			Bean: def.Name(),
			Err:  &TypeMismatchError{Expected: def.typ.String(), Got: got.String()},
		}
	}

	c.metrics.observeInstantiation(def.scope)
	c.logger.Debug("Bean instantiated",
		zap.String("bean", def.Name()),
		zap.Stringer("scope", def.scope),
		zap.Stringers("chain", Chain(ctx)),
	)
	return instance, nil
}

func (c *Container) beansOfType(ctx context.Context, t reflect.Type, qualifier string) []any {
	type ranked struct {
		instance any
		order    int
	}

	var found []ranked
	for _, ref := range qualify(c.candidates(ctx, t), qualifier) {
		ri, err := c.instantiate(ctx, ref)
		if err != nil {
			c.logger.Warn("Skipping bean that failed to instantiate",
				zap.String("bean", ref.Name()),
				zap.Error(err),
			)
			continue
		}
		precedence := ref.Order()
		if o, ok := ri.Instance.(order.Ordered); ok {
			precedence = o.Order()
		}
		found = append(found, ranked{instance: ri.Instance, order: precedence})
	}

	slices.SortStableFunc(found, func(a, b ranked) int {
		return cmp.Compare(a.order, b.order)
	})

	out := make([]any, len(found))
	for i, r := range found {
		out[i] = r.instance
	}
	return out
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeResolved
	}
	var (
		missing  *NoSuchBeanError
		multiple *NonUniqueBeanError
		cycle    *CircularDependencyError
		failed   *BeanInstantiationError
	)
	switch {
	case errors.Is(err, ErrClosed):
		return outcomeClosed
	case errors.As(err, &failed):
		return outcomeInstantiation
	case errors.As(err, &cycle):
		return outcomeCircular
	case errors.As(err, &missing):
		return outcomeNoSuchBean
	case errors.As(err, &multiple):
		return outcomeNonUnique
	default:
		return outcomeError
	}
}
