package beans

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/centraunit/beans/order"
)

// Key identifies a bean by its produced type and optional qualifier.
type Key struct {
	Type      reflect.Type
	Qualifier string
}

// KeyOf returns the key for type T with an optional qualifier.
func KeyOf[T any](qualifier ...string) Key {
	k := Key{Type: typeOf[T]()}
	if len(qualifier) > 0 {
		k.Qualifier = qualifier[0]
	}
	return k
}

func (k Key) String() string {
	name := "<nil>"
	if k.Type != nil {
		name = k.Type.String()
	}
	if k.Qualifier == "" {
		return name
	}
	return fmt.Sprintf("%s(%q)", name, k.Qualifier)
}

// Reference is a possibly deferred bean descriptor. Its metadata is available
// without loading; Load materializes the full [Definition] and is only called
// for the candidate that wins resolution.
type Reference interface {
	BeanType

	Scope() Scope
	Order() int
	Conditions() []Condition

	// Owner is the enclosing component of a factory-produced bean, or nil.
	Owner() Reference

	Load() (*Definition, error)
}

// InjectionPoint is a declared dependency of a bean.
type InjectionPoint struct {
	Type      reflect.Type `validate:"required"`
	Qualifier string
	// Optional dependencies resolve to nil when no bean exists.
	Optional bool
	// All injects every eligible bean of Type, ordered by precedence.
	All bool
}

// Dependency returns a required injection point.
func Dependency(t reflect.Type, qualifier string) InjectionPoint {
	return InjectionPoint{Type: t, Qualifier: qualifier}
}

// DependencyOf returns a required injection point for type T.
func DependencyOf[T any](qualifier ...string) InjectionPoint {
	k := KeyOf[T](qualifier...)
	return InjectionPoint{Type: k.Type, Qualifier: k.Qualifier}
}

func (p InjectionPoint) key() Key {
	return Key{Type: p.Type, Qualifier: p.Qualifier}
}

// metadata is the part of a descriptor needed to filter and disambiguate.
type metadata struct {
	typ         reflect.Type
	qualifier   string
	scope       Scope
	order       int
	primary     bool
	conditions  []Condition
	postProcess bool
	name        string
	owner       Reference
}

func (m *metadata) ProducedType() reflect.Type { return m.typ }
func (m *metadata) IsPrimary() bool { return m.primary }
func (m *metadata) Qualifier() string { return m.qualifier }
func (m *metadata) RequiresPostProcessing() bool { return m.postProcess }
func (m *metadata) Scope() Scope { return m.scope }
func (m *metadata) Order() int { return m.order }
func (m *metadata) Conditions() []Condition { return slices.Clone(m.conditions) }
func (m *metadata) Owner() Reference { return m.owner }
func (m *metadata) Key() Key { return Key{Type: m.typ, Qualifier: m.qualifier} }

func (m *metadata) Name() string {
	if m.name != "" {
		return m.name
	}
	return m.Key().String()
}

// Constructor builds an instance from resolved injection point values. Values
// for optional points that could not be resolved are nil; values for All
// points are []any.
type Constructor func(ctx context.Context, args []any) (any, error)

// build is the uniform construction signature; owner is nil unless the bean
// is produced by a factory method.
type build func(ctx context.Context, owner any, args []any) (any, error)

// Definition is a fully loaded, immutable bean descriptor.
type Definition struct {
	metadata
	injections []InjectionPoint
	construct  build
}

// InjectionPoints returns the bean's dependencies in declaration order.
func (d *Definition) InjectionPoints() []InjectionPoint {
	return slices.Clone(d.injections)
}

// IsFactory reports whether the bean is produced by a factory method.
func (d *Definition) IsFactory() bool {
	return d.owner != nil
}

// Load returns d itself.
func (d *Definition) Load() (*Definition, error) {
	return d, nil
}

func (d *Definition) String() string {
	return d.Name()
}

// Option configures a definition or reference.
type Option func(*config)

type config struct {
	metadata
	injections []InjectionPoint
	qualifiers map[int]string
	optional   map[int]bool
	all        map[int]bool
}

func newConfig(t reflect.Type, opts []Option) *config {
	c := &config{
		metadata: metadata{
			typ:   t,
			scope: Singleton,
			order: order.LowestPrecedence,
		},
		qualifiers: map[int]string{},
		optional:   map[int]bool{},
		all:        map[int]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Named sets the bean's qualifier.
func Named(qualifier string) Option {
	return func(c *config) { c.qualifier = qualifier }
}

// InScope sets the bean's scope. The default is [Singleton].
func InScope(s Scope) Option {
	return func(c *config) { c.scope = s }
}

// WithOrder sets the bean's precedence. Lower values win; the default is
// order.LowestPrecedence.
func WithOrder(precedence int) Option {
	return func(c *config) { c.order = precedence }
}

// Primary marks the bean as the default among unqualified ties.
func Primary() Option {
	return func(c *config) { c.primary = true }
}

// Requires adds conditions that must all hold for the bean to be eligible.
func Requires(conds ...Condition) Option {
	return func(c *config) { c.conditions = append(c.conditions, conds...) }
}

// PostProcessed asks the container to run its post-processors on the bean's
// instance at start.
func PostProcessed() Option {
	return func(c *config) { c.postProcess = true }
}

// WithName sets the name used for the bean in diagnostics.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// ProducedBy declares owner as the enclosing component of a deferred
// factory-produced bean. Owner conditions gate the bean's eligibility.
func ProducedBy(owner Reference) Option {
	return func(c *config) { c.owner = owner }
}

// Inject sets the injection points of a bean built with [Define].
func Inject(points ...InjectionPoint) Option {
	return func(c *config) { c.injections = append(c.injections, points...) }
}

// Qualify sets the qualifier of the dependency at index. Indexes count
// dependencies only; a leading context.Context or factory owner parameter is
// not counted.
func Qualify(index int, qualifier string) Option {
	return func(c *config) { c.qualifiers[index] = qualifier }
}

// Optional marks the dependency at index as optional.
func Optional(index int) Option {
	return func(c *config) { c.optional[index] = true }
}

// All makes the dependency at index receive every eligible bean of its
// element type. With [Provide] and [Factory] the parameter must be a slice.
func All(index int) Option {
	return func(c *config) { c.all[index] = true }
}

// applyIndexed folds Qualify, Optional and All into the injection points.
func (c *config) applyIndexed() error {
	n := len(c.injections)
	for _, m := range []map[int]bool{c.optional, c.all} {
		for i := range m {
			if i < 0 || i >= n {
				return fmt.Errorf("dependency index %d out of range [0,%d)", i, n)
			}
		}
	}
	for i, q := range c.qualifiers {
		if i < 0 || i >= n {
			return fmt.Errorf("dependency index %d out of range [0,%d)", i, n)
		}
		c.injections[i].Qualifier = q
	}
	for i := range c.optional {
		c.injections[i].Optional = true
	}
	for i := range c.all {
		c.injections[i].All = true
	}
	return nil
}

func (c *config) definition(construct build) (*Definition, error) {
	d := &Definition{
		metadata:   c.metadata,
		injections: c.injections,
		construct:  construct,
	}
	if err := validateDefinition(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Define returns a definition for type t built by construct. Dependencies are
// declared with [Inject].
func Define(t reflect.Type, construct Constructor, opts ...Option) (*Definition, error) {
	c := newConfig(t, opts)
	if construct == nil {
		return nil, &InvalidDefinitionError{Bean: c.Name(), Err: errors.New("constructor cannot be nil")}
	}
	if err := c.applyIndexed(); err != nil {
		return nil, &InvalidDefinitionError{Bean: c.Name(), Err: err}
	}
	return c.definition(func(ctx context.Context, _ any, args []any) (any, error) {
		return construct(ctx, args)
	})
}

// Provide returns a definition built by calling constructor, which must have
// the signature func(deps...) T or func(deps...) (T, error). A leading
// context.Context parameter receives the resolution context. Every other
// parameter is a dependency resolved by type.
func Provide(constructor any, opts ...Option) (*Definition, error) {
	fn := reflect.ValueOf(constructor)
	sig, err := checkFunc(fn)
	if err != nil {
		return nil, &InvalidDefinitionError{Bean: fmt.Sprintf("%T", constructor), Err: err}
	}

	in := paramsOf(sig)
	passCtx := len(in) > 0 && in[0] == contextType
	if passCtx {
		in = in[1:]
	}

	c := newConfig(sig.Out(0), append([]Option{WithName(funcName(fn))}, opts...))
	if err := c.injectParams(in); err != nil {
		return nil, &InvalidDefinitionError{Bean: c.Name(), Err: err}
	}

	points := c.injections
	return c.definition(func(ctx context.Context, _ any, args []any) (any, error) {
		values := make([]reflect.Value, 0, sig.NumIn())
		if passCtx {
			values = append(values, reflect.ValueOf(&ctx).Elem())
		}
		values = append(values, argValues(in, points, args)...)
		return call(fn, values)
	})
}

// Lazy returns a deferred reference to a bean of type t. The reference is
// filtered and disambiguated from its options alone; load runs at most once,
// when the reference is first chosen for instantiation, and must return a
// definition with the same key.
func Lazy(t reflect.Type, load func() (*Definition, error), opts ...Option) (Reference, error) {
	c := newConfig(t, opts)
	if load == nil {
		return nil, &InvalidDefinitionError{Bean: c.Name(), Err: errors.New("loader cannot be nil")}
	}
	ref := &lazyReference{metadata: c.metadata, load: load}
	if err := validateMetadata(&ref.metadata); err != nil {
		return nil, err
	}
	return ref, nil
}

type lazyReference struct {
	metadata
	load func() (*Definition, error)

	once sync.Once
	def  *Definition
	err  error
}

func (r *lazyReference) Load() (*Definition, error) {
	r.once.Do(func() {
		def, err := r.load()
		switch {
		case err != nil:
			r.err = err
		case def == nil:
			r.err = errors.New("loader returned no definition")
		case def.Key() != r.Key():
			r.err = fmt.Errorf("loaded definition %s does not match reference %s", def.Key(), r.Key())
		default:
			r.def = def
		}
	})
	return r.def, r.err
}
