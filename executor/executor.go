// Package executor provides executor configurations as container beans,
// including the default scheduled executor that is only active while no
// scheduled executor has been configured through properties.
package executor

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Type is the kind of executor a configuration describes.
type Type int

// Executor kinds
const (
	// Scheduled runs delayed tasks on CorePoolSize goroutines.
	Scheduled Type = iota + 1
	// Cached grows and shrinks its goroutines with demand.
	Cached
	// Fixed runs tasks on exactly PoolSize goroutines.
	Fixed
	// WorkStealing spreads tasks over Parallelism queues.
	WorkStealing
)

func (t Type) String() string {
	switch t {
	case Scheduled:
		return "scheduled"
	case Cached:
		return "cached"
	case Fixed:
		return "fixed"
	case WorkStealing:
		return "work-stealing"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Configuration describes an executor.
type Configuration struct {
	Name         string
	Type         Type `validate:"min=1,max=4"`
	PoolSize     int  `validate:"gte=0"`
	CorePoolSize int  `validate:"gte=0"`
	Parallelism  int  `validate:"gte=0"`
}

// Of returns the default configuration for executors of type t. Pool sizes
// scale with the number of available CPUs.
func Of(t Type) *Configuration {
	cpus := runtime.NumCPU()
	cfg := &Configuration{Type: t}
	switch t {
	case Scheduled:
		cfg.CorePoolSize = 2 * cpus
	case Fixed:
		cfg.PoolSize = 2 * cpus
	case WorkStealing:
		cfg.Parallelism = cpus
	}
	return cfg
}

// Named returns a copy of c with the given name.
func (c *Configuration) Named(name string) *Configuration {
	cp := *c
	cp.Name = name
	return &cp
}

var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New()
})

// Validate checks that the configuration describes a known executor type
// with non-negative sizes.
func (c *Configuration) Validate() error {
	if err := validate().Struct(c); err != nil {
		return fmt.Errorf("invalid executor configuration %q: %w", c.Name, err)
	}
	return nil
}
