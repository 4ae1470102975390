package beans

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// published is a constructed singleton and the definition that produced it.
type published struct {
	instance any
	def      *Definition
}

// slot guards construction of one singleton. Readers load the published
// value without locking; writers claim the mutex, re-check and publish.
type slot struct {
	mu    sync.Mutex
	value atomic.Pointer[published]

	holder *claimant // guarded by singletons.waitMu
}

// claimant is one logical resolution competing for singleton slots. It is
// carried in the context so nested resolutions on behalf of the same request
// share it.
type claimant struct {
	waiting *slot // guarded by singletons.waitMu
}

type claimantKey struct{}

func withClaimant(ctx context.Context) context.Context {
	if _, ok := ctx.Value(claimantKey{}).(*claimant); ok {
		return ctx
	}
	return context.WithValue(ctx, claimantKey{}, &claimant{})
}

func claimantFrom(ctx context.Context) *claimant {
	if c, ok := ctx.Value(claimantKey{}).(*claimant); ok {
		return c
	}
	return &claimant{}
}

// singletons is the per-container instance cache. Slots are keyed by the
// registered reference, so a lock is only ever contended by callers racing on
// the same bean. Two references sharing a key are two singletons: both stay
// alive once each has been instantiated, for example through BeansOfType.
type singletons struct {
	slots sync.Map // Reference -> *slot

	// waitMu guards the wait-for edges between claimants and slots.
	waitMu sync.Mutex

	orderMu sync.Mutex
	order   []*published
}

func (s *singletons) slot(ref Reference) *slot {
	if v, ok := s.slots.Load(ref); ok {
		return v.(*slot)
	}
	v, _ := s.slots.LoadOrStore(ref, &slot{})
	return v.(*slot)
}

// lookup returns the published instance for ref, if any.
func (s *singletons) lookup(ref Reference) (*published, bool) {
	v, ok := s.slots.Load(ref)
	if !ok {
		return nil, false
	}
	p := v.(*slot).value.Load()
	return p, p != nil
}

// getOrCreate returns the instance published for ref, calling create at most
// once across all concurrent callers. create runs while the slot is claimed,
// so dependencies resolved inside it are resolved once as well. created
// reports whether this call constructed the instance.
func (s *singletons) getOrCreate(ctx context.Context, ref Reference, def *Definition, create func(context.Context) (any, error)) (p *published, created bool, err error) {
	sl := s.slot(ref)
	if p := sl.value.Load(); p != nil {
		return p, false, nil
	}

	if err := s.claim(sl, claimantFrom(ctx)); err != nil {
		return nil, false, &CircularDependencyError{Chain: Chain(ctx)}
	}
	defer s.release(sl)

	if p := sl.value.Load(); p != nil {
		return p, false, nil
	}

	instance, err := create(ctx)
	if err != nil {
		return nil, false, err
	}
	p = &published{instance: instance, def: def}
	sl.value.Store(p)

	s.orderMu.Lock()
	s.order = append(s.order, p)
	s.orderMu.Unlock()

	return p, true, nil
}

var errWaitCycle = errors.New("singleton claims wait on each other")

// claim locks sl for me. Before blocking it follows the chain of holders and
// the slots they wait on; reaching me again means the wait would never end.
func (s *singletons) claim(sl *slot, me *claimant) error {
	if sl.mu.TryLock() {
		s.hold(sl, me)
		return nil
	}

	s.waitMu.Lock()
	for h := sl.holder; h != nil; h = h.waiting.holder {
		if h == me {
			s.waitMu.Unlock()
			return errWaitCycle
		}
		if h.waiting == nil {
			break
		}
	}
	me.waiting = sl
	s.waitMu.Unlock()

	sl.mu.Lock()
	s.hold(sl, me)
	return nil
}

func (s *singletons) hold(sl *slot, me *claimant) {
	s.waitMu.Lock()
	me.waiting = nil
	sl.holder = me
	s.waitMu.Unlock()
}

func (s *singletons) release(sl *slot) {
	s.waitMu.Lock()
	sl.holder = nil
	s.waitMu.Unlock()
	sl.mu.Unlock()
}

// drain returns the published singletons in publication order and forgets
// them.
func (s *singletons) drain() []*published {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()
	out := s.order
	s.order = nil
	s.slots.Clear()
	return out
}
