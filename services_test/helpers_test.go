package beans_test

import (
	"github.com/centraunit/beans"
	"github.com/centraunit/beans/property"
	"github.com/stretchr/testify/require"
)

func provide(t require.TestingT, constructor any, opts ...beans.Option) *beans.Definition {
	def, err := beans.Provide(constructor, opts...)
	require.NoError(t, err)
	return def
}

func newContainer(t require.TestingT, props map[string]any, refs ...beans.Reference) *beans.Container {
	c, err := beans.New(beans.WithProperties(property.NewMap(props)))
	require.NoError(t, err)
	require.NoError(t, c.Register(refs...))
	return c
}
