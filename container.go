// Package beans provides the resolution and lifecycle engine of an
// inversion-of-control container.
//
// Bean descriptors are registered explicitly, either as loaded definitions or
// as deferred references. Each request decides afresh which descriptors are
// eligible, picks a single winner by qualifier, primary flag and precedence,
// and builds it through its constructor or factory method. Singletons are
// built at most once per container and disposed in reverse order on
// shutdown.
package beans

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/centraunit/beans/property"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Container holds registered bean references and the singletons built from
// them. Containers are independent of each other; the zero value is not
// usable, use [New].
type Container struct {
	id         string
	logger     *zap.Logger
	properties property.Source
	types      *typeCache
	metrics    *metrics
	cache      singletons

	// refs is replaced wholesale on Register so resolution reads a
	// consistent snapshot without locking.
	refs atomic.Pointer[[]Reference]

	mu         sync.Mutex
	processors []PostProcessor

	started atomic.Bool
	closed  atomic.Bool
}

// ContainerOption configures a Container.
type ContainerOption func(*containerOptions)

type containerOptions struct {
	properties    property.Source
	logger        *zap.Logger
	registerer    prometheus.Registerer
	typeCacheSize int
}

// WithProperties sets the property source consulted by property conditions.
func WithProperties(src property.Source) ContainerOption {
	return func(o *containerOptions) {
		o.properties = src
	}
}

// WithLogger sets the container logger. The default discards everything.
func WithLogger(logger *zap.Logger) ContainerOption {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithRegisterer registers the container metrics with reg instead of a
// private registry.
func WithRegisterer(reg prometheus.Registerer) ContainerOption {
	return func(o *containerOptions) {
		o.registerer = reg
	}
}

// WithTypeCacheSize bounds the number of memoized assignability checks.
func WithTypeCacheSize(n int) ContainerOption {
	return func(o *containerOptions) {
		o.typeCacheSize = n
	}
}

// New creates an empty container.
func New(opts ...ContainerOption) (*Container, error) {
	o := containerOptions{
		properties: property.Map{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.properties == nil {
		o.properties = property.Map{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	id := uuid.NewString()

	types, err := newTypeCache(o.typeCacheSize)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(o.registerer, id)
	if err != nil {
		return nil, err
	}

	c := &Container{
		id:         id,
		logger:     o.logger.With(zap.String("container", id)),
		properties: o.properties,
		types:      types,
		metrics:    m,
	}
	c.refs.Store(&[]Reference{})
	return c, nil
}

// ID returns the container's unique identifier, also used as the
// "container" label of its metrics.
func (c *Container) ID() string {
	return c.id
}

// Gatherer returns the registry holding the container metrics, or nil when a
// Registerer that cannot gather was supplied.
func (c *Container) Gatherer() prometheus.Gatherer {
	return c.metrics.registry
}

// Property reads path from the container's property source.
func (c *Container) Property(path string) (any, bool) {
	return c.properties.Property(path)
}

// Register adds bean references to the container. References are considered
// in registration order, which breaks precedence ties deterministically.
func (c *Container) Register(refs ...Reference) error {
	for _, ref := range refs {
		if err := checkReference(ref); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}

	current := *c.refs.Load()
	next := make([]Reference, 0, len(current)+len(refs))
	next = append(next, current...)
	next = append(next, refs...)
	c.refs.Store(&next)

	for _, ref := range refs {
		c.logger.Debug("Bean registered",
			zap.String("bean", ref.Name()),
			zap.Stringer("scope", ref.Scope()),
			zap.Int("order", ref.Order()),
		)
	}
	return nil
}

func checkReference(ref Reference) error {
	if ref == nil || isNilReference(ref) {
		return &InvalidDefinitionError{Bean: "<nil>", Err: errors.New("reference cannot be nil")}
	}
	if d, ok := ref.(*Definition); ok && d.construct == nil {
		return &InvalidDefinitionError{Bean: d.Name(), Err: errors.New("definition has no constructor")}
	}
	return nil
}

func isNilReference(ref Reference) bool {
	switch r := ref.(type) {
	case *Definition:
		return r == nil
	case *lazyReference:
		return r == nil
	}
	return false
}

func (c *Container) snapshot() []Reference {
	return *c.refs.Load()
}

// AddPostProcessor registers p to run on post-processed beans during Start.
func (c *Container) AddPostProcessor(p PostProcessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, p)
}

// Start instantiates every eligible bean that requires post-processing and
// passes it to each registered post-processor in registration order.
func (c *Container) Start(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	c.mu.Lock()
	processors := append([]PostProcessor(nil), c.processors...)
	c.mu.Unlock()

	var errs []error
	processed := 0
	for _, ref := range c.snapshot() {
		if !ref.RequiresPostProcessing() || !c.eligible(ctx, ref) {
			continue
		}
		ri, err := c.instantiate(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, p := range processors {
			if err := p.PostProcess(ctx, ref, ri.Instance); err != nil {
				errs = append(errs, &PostProcessError{Bean: ref.Name(), Err: err})
			}
		}
		processed++
	}

	c.logger.Info("Container started",
		zap.Int("beans", len(c.snapshot())),
		zap.Int("post_processed", processed),
	)
	return errors.Join(errs...)
}

// Shutdown disposes every published singleton in reverse publication order.
// Singletons implementing [Shutdowner] have OnShutdown called; those
// implementing io.Closer are closed. Disposal stops early when ctx is done.
// After Shutdown the container refuses further work with [ErrClosed].
func (c *Container) Shutdown(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	c.mu.Lock()
	if !c.closed.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	instances := c.cache.drain()
	var errs []error
	for i := len(instances) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		p := instances[i]
		if err := dispose(ctx, p.instance); err != nil {
			c.logger.Warn("Bean shutdown failed", zap.String("bean", p.def.Name()), zap.Error(err))
			errs = append(errs, &ShutdownError{Bean: p.def.Name(), Err: err})
		}
	}

	c.logger.Info("Container shut down", zap.Int("singletons", len(instances)))
	return errors.Join(errs...)
}

func dispose(ctx context.Context, instance any) error {
	switch v := instance.(type) {
	case Shutdowner:
		return v.OnShutdown(ctx)
	case io.Closer:
		return v.Close()
	}
	return nil
}

// References returns the registered references in registration order.
func (c *Container) References() []Reference {
	return append([]Reference(nil), c.snapshot()...)
}

// IsEligible reports whether the conditions of ref and of its factory owner
// currently hold.
func (c *Container) IsEligible(ctx context.Context, ref Reference) bool {
	if c.closed.Load() || ref == nil {
		return false
	}
	return c.eligible(ctxOrBackground(ctx), ref)
}
