package beans

import (
	"context"
	"reflect"
)

// Scope defines the lifetime and sharing behavior of a bean.
type Scope int

// Available bean scopes
const (
	// Singleton beans are constructed at most once per container and shared
	// by every request for their key.
	Singleton Scope = iota
	// Prototype beans are constructed anew for each resolution and are owned
	// by the caller.
	Prototype
)

// String returns the human-readable name of the scope.
func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Prototype:
		return "prototype"
	default:
		return "unknown"
	}
}

// BeanType is the capability set shared by deferred references and loaded
// definitions. It is enough to filter and disambiguate candidates without
// materializing them.
type BeanType interface {
	// ProducedType is the type of the instance the bean produces.
	ProducedType() reflect.Type

	// IsPrimary reports whether the bean wins among unqualified ties.
	IsPrimary() bool

	// Qualifier is the optional name disambiguating beans of one type.
	Qualifier() string

	// Name identifies the bean in diagnostics.
	Name() string

	// RequiresPostProcessing reports whether registered post-processors run
	// on the bean's instance when the container starts.
	RequiresPostProcessing() bool
}

// PostProcessor is invoked by [Container.Start] for every eligible bean that
// requires post-processing.
type PostProcessor interface {
	PostProcess(ctx context.Context, bean BeanType, instance any) error
}

// PostProcessorFunc adapts a function to [PostProcessor].
type PostProcessorFunc func(ctx context.Context, bean BeanType, instance any) error

func (f PostProcessorFunc) PostProcess(ctx context.Context, bean BeanType, instance any) error {
	return f(ctx, bean, instance)
}

// Shutdowner is implemented by singletons that need cleanup when the
// container shuts down. Singletons implementing io.Closer are closed as well.
type Shutdowner interface {
	OnShutdown(ctx context.Context) error
}
