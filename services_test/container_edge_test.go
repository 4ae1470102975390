package beans_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/centraunit/beans"
	"github.com/centraunit/beans/mock"
	"github.com/stretchr/testify/suite"
)

type EdgeCaseTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *EdgeCaseTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *EdgeCaseTestSuite) TestContainerEdgeCases() {
	s.Run("ShutdownDuringResolution", func() {
		c := newContainer(s.T(), nil, provide(s.T(), mock.NewMockDB))

		var wg sync.WaitGroup
		errs := make(chan error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := beans.Resolve[mock.Database](s.ctx, c); err != nil && !errors.Is(err, beans.ErrClosed) {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if err := c.Shutdown(s.ctx); err != nil {
				errs <- err
			}
		}()

		wg.Wait()
		close(errs)
		for err := range errs {
			s.NoError(err)
		}
	})

	s.Run("MultipleConcurrentShutdowns", func() {
		c := newContainer(s.T(), nil)
		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := c.Shutdown(s.ctx); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		s.Equal(1, succeeded)
	})

	s.Run("StartWithoutBeans", func() {
		c := newContainer(s.T(), nil)
		s.NoError(c.Start(s.ctx), "Start should succeed with no beans")
	})

	s.Run("MultipleStarts", func() {
		c := newContainer(s.T(), nil)
		s.NoError(c.Start(s.ctx))
		s.ErrorIs(c.Start(s.ctx), beans.ErrAlreadyStarted)
	})

	s.Run("ShutdownWithoutStart", func() {
		c := newContainer(s.T(), nil, provide(s.T(), mock.NewMockDB))
		s.NoError(c.Shutdown(s.ctx), "Shutdown without start should be safe")
	})

	s.Run("OperationsAfterShutdown", func() {
		c := newContainer(s.T(), nil, provide(s.T(), mock.NewMockDB))
		s.NoError(c.Shutdown(s.ctx))

		_, err := beans.Resolve[mock.Database](s.ctx, c)
		s.ErrorIs(err, beans.ErrClosed)
		s.Empty(beans.BeansOfType[mock.Database](s.ctx, c))
		s.False(beans.ContainsBean[mock.Database](s.ctx, c))
		s.ErrorIs(c.Register(provide(s.T(), mock.NewMockCache)), beans.ErrClosed)
		s.ErrorIs(c.Start(s.ctx), beans.ErrClosed)
		s.ErrorIs(c.Shutdown(s.ctx), beans.ErrClosed)
	})
}

func (s *EdgeCaseTestSuite) TestIndependentContainers() {
	c1 := newContainer(s.T(), nil, provide(s.T(), mock.NewMockDB))
	c2 := newContainer(s.T(), nil, provide(s.T(), mock.NewMockDB))

	db1, err := beans.Resolve[mock.Database](s.ctx, c1)
	s.NoError(err)
	db2, err := beans.Resolve[mock.Database](s.ctx, c2)
	s.NoError(err)
	s.NotSame(db1, db2)
	s.NotEqual(c1.ID(), c2.ID())

	s.NoError(c1.Shutdown(s.ctx))
	s.False(db1.IsConnected())
	s.True(db2.IsConnected())
}

func (s *EdgeCaseTestSuite) TestResolutionEdgeCases() {
	s.Run("ResolveNonExistent", func() {
		c := newContainer(s.T(), nil)
		_, err := beans.Resolve[mock.Database](s.ctx, c)
		var missing *beans.NoSuchBeanError
		s.True(errors.As(err, &missing))
	})

	s.Run("NilType", func() {
		c := newContainer(s.T(), nil, provide(s.T(), mock.NewMockDB))
		_, err := c.Resolve(s.ctx, nil, "")
		var missing *beans.NoSuchBeanError
		s.True(errors.As(err, &missing))
		s.Nil(c.BeansOfType(s.ctx, nil))
		s.False(c.ContainsBean(s.ctx, nil, ""))
	})

	s.Run("RegistrationAfterResolution", func() {
		c := newContainer(s.T(), nil, provide(s.T(), func() *mock.English { return &mock.English{} }))
		g, err := beans.Resolve[mock.Greeter](s.ctx, c)
		s.NoError(err)
		s.Equal("hello", g.Greet())

		s.NoError(c.Register(provide(s.T(), func() *mock.French { return &mock.French{} }, beans.Primary())))
		g, err = beans.Resolve[mock.Greeter](s.ctx, c)
		s.NoError(err)
		s.Equal("bonjour", g.Greet())
	})
}

func (s *EdgeCaseTestSuite) TestLazyReferences() {
	loads := map[string]int{}
	lazy := func(name string, ctor any, opts ...beans.Option) beans.Reference {
		def := provide(s.T(), ctor, opts...)
		ref, err := beans.Lazy(def.ProducedType(), func() (*beans.Definition, error) {
			loads[name]++
			return def, nil
		}, opts...)
		s.Require().NoError(err)
		return ref
	}

	c := newContainer(s.T(), map[string]any{"greeting": "fr"},
		lazy("english", func() *mock.English { return &mock.English{} },
			beans.Requires(beans.PropertyEqualTo("greeting", "en"))),
		lazy("french", func() *mock.French { return &mock.French{} },
			beans.Requires(beans.PropertyEqualTo("greeting", "fr")), beans.WithOrder(1)),
		lazy("german", func() *mock.German { return &mock.German{} }, beans.WithOrder(2)),
	)

	s.True(beans.ContainsBean[mock.Greeter](s.ctx, c))
	s.Empty(loads, "metadata queries never load definitions")

	g, err := beans.Resolve[mock.Greeter](s.ctx, c)
	s.Require().NoError(err)
	s.Equal("bonjour", g.Greet())
	s.Equal(map[string]int{"french": 1}, loads)

	_, err = beans.Resolve[mock.Greeter](s.ctx, c)
	s.NoError(err)
	s.Equal(map[string]int{"french": 1}, loads)
}

func (s *EdgeCaseTestSuite) TestLazyReferenceIsAReference() {
	ref, err := beans.Lazy(reflect.TypeFor[*mock.MockDB](), func() (*beans.Definition, error) {
		return provide(s.T(), mock.NewMockDB), nil
	}, beans.Named("main"), beans.Primary(), beans.WithOrder(3))
	s.Require().NoError(err)

	s.Equal(reflect.TypeFor[*mock.MockDB](), ref.ProducedType())
	s.Equal("main", ref.Qualifier())
	s.True(ref.IsPrimary())
	s.Equal(3, ref.Order())
	s.Equal(beans.Singleton, ref.Scope())
	s.False(ref.RequiresPostProcessing())
	s.Equal(`*mock.MockDB("main")`, ref.Name())
}

func (s *EdgeCaseTestSuite) TestInspection() {
	db := provide(s.T(), mock.NewMockDB, beans.Requires(beans.RequiresProperty("db.url")))
	cache := provide(s.T(), mock.NewMockCache)
	c := newContainer(s.T(), map[string]any{"cache.enabled": true}, db, cache)

	refs := c.References()
	s.Require().Len(refs, 2)
	s.Same(db, refs[0])
	s.Same(cache, refs[1])
	refs[0] = nil
	s.Same(db, c.References()[0], "callers get a copy")

	s.False(c.IsEligible(s.ctx, db))
	s.True(c.IsEligible(s.ctx, cache))
	s.False(c.IsEligible(s.ctx, nil))

	s.Require().NoError(c.Shutdown(s.ctx))
	s.False(c.IsEligible(s.ctx, cache))
}

func TestEdgeCaseTestSuite(t *testing.T) {
	suite.Run(t, new(EdgeCaseTestSuite))
}
