package beans

import (
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultTypeCacheSize = 1024

type typePair struct {
	from, to reflect.Type
}

// typeCache memoizes reflect assignability checks. Assignability is a pure
// function of two types, so entries never go stale.
type typeCache struct {
	cache *lru.Cache[typePair, bool]
}

func newTypeCache(size int) (*typeCache, error) {
	if size <= 0 {
		size = defaultTypeCacheSize
	}
	cache, err := lru.New[typePair, bool](size)
	if err != nil {
		return nil, err
	}
	return &typeCache{cache: cache}, nil
}

// assignable reports whether a value of type from can be used as to.
func (c *typeCache) assignable(from, to reflect.Type) bool {
	p := typePair{from: from, to: to}
	if ok, hit := c.cache.Get(p); hit {
		return ok
	}
	ok := from.AssignableTo(to)
	c.cache.Add(p, ok)
	return ok
}
