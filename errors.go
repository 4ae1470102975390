package beans

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed is returned when the container has been shut down.
	ErrClosed = errors.New("container is shut down")

	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("container already started")
)

// NoSuchBeanError is returned when no eligible bean satisfies a request.
type NoSuchBeanError struct {
	Key Key
}

func (e *NoSuchBeanError) Error() string {
	return fmt.Sprintf("no bean of type %s", e.Key)
}

// NonUniqueBeanError is returned when several eligible beans remain after
// primary and precedence disambiguation.
type NonUniqueBeanError struct {
	Key        Key
	Candidates []string
}

func (e *NonUniqueBeanError) Error() string {
	return fmt.Sprintf("multiple beans of type %s: %s", e.Key, strings.Join(e.Candidates, ", "))
}

// CircularDependencyError represents a resolution chain that revisits a bean
// still under construction. Chain runs from the original request to the
// repeated key.
type CircularDependencyError struct {
	Chain []Key
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, k := range e.Chain {
		parts[i] = k.String()
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(parts, " -> "))
}

// BeanInstantiationError represents a failure raised while constructing a
// bean, either by its constructor or by its factory method.
type BeanInstantiationError struct {
	Bean string
	Err  error
}

func (e *BeanInstantiationError) Error() string {
	return fmt.Sprintf("instantiation failed for bean %s: %v", e.Bean, e.Err)
}

func (e *BeanInstantiationError) Unwrap() error {
	return e.Err
}

// InvalidDefinitionError represents a definition rejected at construction or
// registration.
type InvalidDefinitionError struct {
	Bean string
	Err  error
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid definition %s: %v", e.Bean, e.Err)
}

func (e *InvalidDefinitionError) Unwrap() error {
	return e.Err
}

// TypeMismatchError represents a type assertion failure in the generic
// helpers.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// ShutdownError represents a singleton shutdown failure.
type ShutdownError struct {
	Bean string
	Err  error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown failed for bean %s: %v", e.Bean, e.Err)
}

func (e *ShutdownError) Unwrap() error {
	return e.Err
}

// PostProcessError represents a post-processor failure during Start.
type PostProcessError struct {
	Bean string
	Err  error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("post-processing failed for bean %s: %v", e.Bean, e.Err)
}

func (e *PostProcessError) Unwrap() error {
	return e.Err
}
