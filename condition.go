package beans

import (
	"context"
	"fmt"
	"reflect"
)

// ConditionKind tags the variant of a [Condition].
type ConditionKind int

const (
	// PropertyPresent requires the property at Path to exist.
	PropertyPresent ConditionKind = iota + 1
	// PropertyAbsent requires the property at Path to be missing.
	PropertyAbsent
	// PropertyEquals requires the property at Path to equal Value.
	PropertyEquals
	// PropertyNotEquals requires the property at Path to be missing or to
	// differ from Value.
	PropertyNotEquals
	// BeanPresent requires an eligible bean for (Type, Qualifier).
	BeanPresent
	// BeanAbsent requires no eligible bean for (Type, Qualifier).
	BeanAbsent
)

func (k ConditionKind) String() string {
	switch k {
	case PropertyPresent:
		return "property-present"
	case PropertyAbsent:
		return "property-absent"
	case PropertyEquals:
		return "property-equals"
	case PropertyNotEquals:
		return "property-not-equals"
	case BeanPresent:
		return "bean-present"
	case BeanAbsent:
		return "bean-absent"
	default:
		return "unknown"
	}
}

// Condition gates a bean's eligibility. Conditions are plain values; they are
// evaluated against the container's property source and registered beans and
// never instantiate anything.
type Condition struct {
	Kind ConditionKind

	// Path and Value are used by the property variants.
	Path  string
	Value string

	// Type and Qualifier are used by the bean variants.
	Type      reflect.Type
	Qualifier string
}

// RequiresProperty is satisfied when path is present.
func RequiresProperty(path string) Condition {
	return Condition{Kind: PropertyPresent, Path: path}
}

// MissingProperty is satisfied when path is absent.
func MissingProperty(path string) Condition {
	return Condition{Kind: PropertyAbsent, Path: path}
}

// PropertyEqualTo is satisfied when path is present and renders as value.
func PropertyEqualTo(path, value string) Condition {
	return Condition{Kind: PropertyEquals, Path: path, Value: value}
}

// PropertyNotEqualTo is satisfied when path is absent or does not render as
// value.
func PropertyNotEqualTo(path, value string) Condition {
	return Condition{Kind: PropertyNotEquals, Path: path, Value: value}
}

// RequiresBean is satisfied when an eligible bean of type t exists.
func RequiresBean(t reflect.Type, qualifier string) Condition {
	return Condition{Kind: BeanPresent, Type: t, Qualifier: qualifier}
}

// MissingBean is satisfied when no eligible bean of type t exists.
func MissingBean(t reflect.Type, qualifier string) Condition {
	return Condition{Kind: BeanAbsent, Type: t, Qualifier: qualifier}
}

// RequiresBeanOf is RequiresBean for type T.
func RequiresBeanOf[T any](qualifier ...string) Condition {
	k := KeyOf[T](qualifier...)
	return RequiresBean(k.Type, k.Qualifier)
}

// MissingBeanOf is MissingBean for type T.
func MissingBeanOf[T any](qualifier ...string) Condition {
	k := KeyOf[T](qualifier...)
	return MissingBean(k.Type, k.Qualifier)
}

func (c Condition) String() string {
	switch c.Kind {
	case PropertyPresent, PropertyAbsent:
		return fmt.Sprintf("%s(%s)", c.Kind, c.Path)
	case PropertyEquals, PropertyNotEquals:
		return fmt.Sprintf("%s(%s=%s)", c.Kind, c.Path, c.Value)
	default:
		return fmt.Sprintf("%s(%s)", c.Kind, Key{Type: c.Type, Qualifier: c.Qualifier})
	}
}

// conditionState is what conditions are evaluated against.
type conditionState interface {
	Property(path string) (any, bool)
	containsBean(ctx context.Context, key Key) bool
}

// evaluate ANDs conds; an empty list holds.
func evaluate(ctx context.Context, conds []Condition, state conditionState) bool {
	for _, c := range conds {
		if !c.holds(ctx, state) {
			return false
		}
	}
	return true
}

func (c Condition) holds(ctx context.Context, state conditionState) bool {
	switch c.Kind {
	case PropertyPresent:
		_, ok := state.Property(c.Path)
		return ok
	case PropertyAbsent:
		_, ok := state.Property(c.Path)
		return !ok
	case PropertyEquals:
		v, ok := state.Property(c.Path)
		return ok && fmt.Sprint(v) == c.Value
	case PropertyNotEquals:
		v, ok := state.Property(c.Path)
		return !ok || fmt.Sprint(v) != c.Value
	case BeanPresent:
		return state.containsBean(ctx, Key{Type: c.Type, Qualifier: c.Qualifier})
	case BeanAbsent:
		return !state.containsBean(ctx, Key{Type: c.Type, Qualifier: c.Qualifier})
	default:
		return false
	}
}
