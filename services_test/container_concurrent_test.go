package beans_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/centraunit/beans"
	"github.com/centraunit/beans/mock"
	"github.com/stretchr/testify/suite"
)

type ConcurrentTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ConcurrentTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *ConcurrentTestSuite) TestConcurrentAccess() {
	c := newContainer(s.T(), nil, provide(s.T(), mock.NewMockDB))

	var wg sync.WaitGroup
	errors := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			instance, err := beans.Resolve[mock.Database](s.ctx, c)
			if err != nil {
				errors <- err
				return
			}
			if !instance.IsConnected() {
				errors <- fmt.Errorf("goroutine %d got a disconnected database", id)
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	for err := range errors {
		s.NoError(err)
	}
}

func (s *ConcurrentTestSuite) TestSingletonConstructedOnce() {
	const callers = 64

	counter := &mock.Counter{Delay: 20 * time.Millisecond}
	c := newContainer(s.T(), nil, provide(s.T(), counter.NewService))

	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan mock.Service, callers)
	errors := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			svc, err := beans.Resolve[mock.Service](s.ctx, c)
			if err != nil {
				errors <- err
				return
			}
			results <- svc
		}()
	}

	close(start)
	wg.Wait()
	close(results)
	close(errors)

	for err := range errors {
		s.NoError(err)
	}

	var first mock.Service
	for svc := range results {
		if first == nil {
			first = svc
		}
		s.Same(first, svc)
	}
	s.Equal(int64(1), counter.Count(), "singleton must be constructed exactly once")
}

func (s *ConcurrentTestSuite) TestPrototypeConstructedPerCall() {
	counter := &mock.Counter{}
	c := newContainer(s.T(), nil, provide(s.T(), counter.NewService, beans.InScope(beans.Prototype)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := beans.Resolve[mock.Service](s.ctx, c)
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(int64(20), counter.Count())
}

func (s *ConcurrentTestSuite) TestIndependentChainsDoNotReportCycles() {
	// Both chains pass through DeepImpl3 concurrently; neither is a cycle.
	delayed := &mock.Counter{Delay: 10 * time.Millisecond}
	c := newContainer(s.T(), nil,
		provide(s.T(), mock.NewDeepImpl1),
		provide(s.T(), mock.NewDeepImpl2),
		provide(s.T(), func(svc mock.Service) *mock.DeepImpl3 {
			return &mock.DeepImpl3{Value: fmt.Sprint("deep-", svc.ID())}
		}, beans.InScope(beans.Prototype)),
		provide(s.T(), delayed.NewService, beans.InScope(beans.Prototype)),
	)

	var wg sync.WaitGroup
	errors := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := beans.Resolve[mock.DeepService1](s.ctx, c); err != nil {
				errors <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := beans.Resolve[mock.DeepService3](s.ctx, c); err != nil {
				errors <- err
			}
		}()
	}
	wg.Wait()
	close(errors)

	for err := range errors {
		s.NoError(err)
	}
}

func (s *ConcurrentTestSuite) TestDifferentKeysDoNotBlockEachOther() {
	release := make(chan struct{})
	slowStarted := make(chan struct{})

	c := newContainer(s.T(), nil,
		provide(s.T(), func() *mock.English {
			close(slowStarted)
			<-release
			return &mock.English{}
		}),
		provide(s.T(), mock.NewMockDB),
	)

	done := make(chan error, 1)
	go func() {
		_, err := beans.Resolve[*mock.English](s.ctx, c)
		done <- err
	}()
	<-slowStarted

	fast := make(chan error, 1)
	go func() {
		_, err := beans.Resolve[mock.Database](s.ctx, c)
		fast <- err
	}()

	select {
	case err := <-fast:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("resolving an unrelated singleton blocked on a construction in progress")
	}

	close(release)
	s.NoError(<-done)
}

func (s *ConcurrentTestSuite) TestConcurrentBeansOfType() {
	c := newContainer(s.T(), nil,
		provide(s.T(), func() *mock.RankedPlugin { return &mock.RankedPlugin{Name: "b", Rank: 2} }),
		provide(s.T(), func() *mock.PlainPlugin { return &mock.PlainPlugin{Name: "c"} }),
		provide(s.T(), func() *mock.RankedPlugin { return &mock.RankedPlugin{Name: "a", Rank: 1} }, beans.Named("a")),
	)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plugins := beans.BeansOfType[mock.Plugin](s.ctx, c)
			if s.Len(plugins, 3) {
				s.Equal("a", plugins[0].PluginName())
				s.Equal("b", plugins[1].PluginName())
				s.Equal("c", plugins[2].PluginName())
			}
		}()
	}
	wg.Wait()
}

type connection struct{ id int64 }

type connectionPool struct{ conn *connection }

func (s *ConcurrentTestSuite) TestSingletonDependenciesResolvedOnce() {
	const callers = 32

	var opened, pools atomic.Int64
	c := newContainer(s.T(), nil,
		provide(s.T(), func() *connection {
			return &connection{id: opened.Add(1)}
		}, beans.InScope(beans.Prototype)),
		provide(s.T(), func(conn *connection) *connectionPool {
			time.Sleep(20 * time.Millisecond)
			pools.Add(1)
			return &connectionPool{conn: conn}
		}),
	)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			pool, err := beans.Resolve[*connectionPool](s.ctx, c)
			if s.NoError(err) {
				s.Equal(int64(1), pool.conn.id)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int64(1), pools.Load(), "singleton constructed once")
	s.Equal(int64(1), opened.Load(), "prototype dependency of the singleton constructed once")
}

type (
	left  struct{}
	right struct{}
)

func (s *ConcurrentTestSuite) TestSingletonsWaitingOnEachOtherFail() {
	var c *beans.Container
	var bothClaimed sync.WaitGroup
	bothClaimed.Add(2)
	var leftOnce, rightOnce sync.Once

	c = newContainer(s.T(), nil,
		provide(s.T(), func(ctx context.Context) (*left, error) {
			leftOnce.Do(bothClaimed.Done)
			bothClaimed.Wait()
			if _, err := beans.Resolve[*right](ctx, c); err != nil {
				return nil, err
			}
			return &left{}, nil
		}),
		provide(s.T(), func(ctx context.Context) (*right, error) {
			rightOnce.Do(bothClaimed.Done)
			bothClaimed.Wait()
			if _, err := beans.Resolve[*left](ctx, c); err != nil {
				return nil, err
			}
			return &right{}, nil
		}),
	)

	results := make(chan error, 2)
	go func() {
		_, err := beans.Resolve[*left](s.ctx, c)
		results <- err
	}()
	go func() {
		_, err := beans.Resolve[*right](s.ctx, c)
		results <- err
	}()

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			var cycle *beans.CircularDependencyError
			s.ErrorAs(err, &cycle)
		case <-time.After(5 * time.Second):
			s.FailNow("singletons waiting on each other deadlocked")
		}
	}
}

func TestConcurrentSuite(t *testing.T) {
	suite.Run(t, new(ConcurrentTestSuite))
}
