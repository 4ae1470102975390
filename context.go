package beans

import "context"

type (
	chainKey struct{}
	evalKey  struct{}
)

// chain is an immutable linked list of the keys currently being instantiated
// by one logical resolution. Each nested resolution extends its parent's
// chain without mutating it, so independent callers never share state.
type chain struct {
	key    Key
	parent *chain
	depth  int
}

func chainFrom(ctx context.Context) *chain {
	c, _ := ctx.Value(chainKey{}).(*chain)
	return c
}

func (c *chain) contains(k Key) bool {
	for n := c; n != nil; n = n.parent {
		if n.key == k {
			return true
		}
	}
	return false
}

// keys returns the chain from the original request to the innermost key.
func (c *chain) keys() []Key {
	if c == nil {
		return nil
	}
	out := make([]Key, c.depth)
	for n := c; n != nil; n = n.parent {
		out[n.depth-1] = n.key
	}
	return out
}

// enter pushes k onto the chain carried by ctx. It fails with a
// *CircularDependencyError if k is already being instantiated.
func enter(ctx context.Context, k Key) (context.Context, error) {
	parent := chainFrom(ctx)
	if parent.contains(k) {
		return ctx, &CircularDependencyError{Chain: append(parent.keys(), k)}
	}
	depth := 1
	if parent != nil {
		depth = parent.depth + 1
	}
	return context.WithValue(ctx, chainKey{}, &chain{key: k, parent: parent, depth: depth}), nil
}

// Chain returns the keys being instantiated in ctx, outermost first. Inside
// a constructor that accepts a context.Context the last element is the bean
// under construction.
func Chain(ctx context.Context) []Key {
	return chainFrom(ctx).keys()
}

// evalStack holds the references whose conditions are being evaluated.
type evalStack struct {
	ref    Reference
	parent *evalStack
}

func evaluating(ctx context.Context, ref Reference) bool {
	s, _ := ctx.Value(evalKey{}).(*evalStack)
	for ; s != nil; s = s.parent {
		if s.ref == ref {
			return true
		}
	}
	return false
}

func withEvaluating(ctx context.Context, ref Reference) context.Context {
	s, _ := ctx.Value(evalKey{}).(*evalStack)
	return context.WithValue(ctx, evalKey{}, &evalStack{ref: ref, parent: s})
}
