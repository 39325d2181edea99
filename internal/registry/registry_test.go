package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objcache/internal/cache"
	"objcache/internal/core"
)

type person struct {
	Name string
	Age  int
}

var personHasher = cache.HasherFuncs[person]{
	ChecksumFunc: func(p person) string { return fmt.Sprintf("%s/%d", p.Name, p.Age) },
	SizeFunc:     func(p person) int64 { return int64(len(p.Name)) },
}

func newPersonRegistry() *Registry[person] {
	return New[person]("person", personHasher)
}

func TestKey(t *testing.T) {
	tests := []struct {
		tenant, model string
		want          string
	}{
		{tenant: "acme.no", model: "person", want: "acme.no/person"},
		{tenant: "a/b", model: "c", want: "a%2Fb/c"},
		{tenant: "a", model: "b/c", want: "a/b%2Fc"},
		{tenant: "", model: "person", want: "/person"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := Key(tt.tenant, tt.model)
			assert.Equal(t, tt.want, got)

			tenant, model, ok := ParseKey(got)
			require.True(t, ok)
			assert.Equal(t, tt.tenant, tenant)
			assert.Equal(t, tt.model, model)
		})
	}

	assert.NotEqual(t, Key("a/b", "c"), Key("a", "b/c"))

	_, _, ok := ParseKey("no-separator")
	assert.False(t, ok)
}

func TestRegistryLifecycle(t *testing.T) {
	r := newPersonRegistry()

	c := r.CreateCache("acme")
	require.NotNil(t, c)
	assert.Equal(t, []string{"acme/person"}, r.Keys())
	assert.Equal(t, []string{"acme"}, r.Tenants())

	r.Update("acme", []person{{Name: "ada", Age: 36}, {Name: "alan", Age: 41}})
	assert.Equal(t, 2, r.Size("acme"))
	assert.Equal(t, int64(7), r.Volume("acme"))
	assert.Len(t, r.All("acme"), 2)
	assert.Len(t, r.Since("acme", 0), 2)

	r.Add("acme", []person{{Name: "grace", Age: 85}})
	assert.Equal(t, 3, r.Size("acme"))

	ts, err := r.LastUpdated("acme")
	require.NoError(t, err)
	assert.Positive(t, ts)

	meta, ok := r.Metadata("acme")
	require.True(t, ok)
	assert.Equal(t, 3, meta.Count)

	r.Flush("acme")
	assert.Equal(t, 0, r.Size("acme"))
	_, ok = r.Cache("acme")
	assert.True(t, ok, "flush keeps the cache registered")

	r.Remove("acme")
	_, ok = r.Cache("acme")
	assert.False(t, ok)
	assert.Empty(t, r.Keys())
	assert.Equal(t, 0, c.Size(), "removed cache is flushed")
}

func TestRegistrySoftFail(t *testing.T) {
	r := newPersonRegistry()

	assert.Empty(t, r.All("ghost"))
	assert.Empty(t, r.Since("ghost", 0))
	assert.Equal(t, 0, r.Size("ghost"))
	assert.Equal(t, int64(0), r.Volume("ghost"))

	r.Update("ghost", []person{{Name: "x"}})
	r.Add("ghost", []person{{Name: "y"}})
	r.Flush("ghost")
	r.Remove("ghost")

	_, ok := r.Cache("ghost")
	assert.False(t, ok, "writes must not register the tenant")
	assert.Empty(t, r.Keys())

	_, ok = r.Metadata("ghost")
	assert.False(t, ok)
}

func TestRegistryLastUpdatedUnknownTenant(t *testing.T) {
	r := newPersonRegistry()

	_, err := r.LastUpdated("ghost")
	require.Error(t, err)

	var cacheErr *core.CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, core.ErrorTypeNotFound, cacheErr.Type)
	assert.Equal(t, "ghost", cacheErr.Tenant)
}

func TestRegistryCreateReplacesAndPutInjects(t *testing.T) {
	r := newPersonRegistry()
	first := r.CreateCache("acme")
	first.Update([]person{{Name: "ada"}})

	second := r.CreateCache("acme")
	got, ok := r.Cache("acme")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 0, r.Size("acme"))

	seeded := r.NewCache()
	seeded.UpdateCache(first.Entries())
	r.Put("acme", seeded)
	assert.Equal(t, 1, r.Size("acme"))
	assert.Equal(t, "person", r.Model())

	assert.NotPanics(t, func() { r.Put("acme", nil) })
	got, ok = r.Cache("acme")
	require.True(t, ok)
	assert.Same(t, seeded, got)

	r.Put("ghost", nil)
	_, ok = r.Cache("ghost")
	assert.False(t, ok)
}

func TestRegistryTenantsSortedByName(t *testing.T) {
	r := newPersonRegistry()
	for _, tenant := range []string{"a/b", "b", "a", "a b"} {
		r.CreateCache(tenant)
	}

	assert.Equal(t, []string{"a", "a b", "a/b", "b"}, r.Tenants())
	assert.Len(t, r.Keys(), 4)
}

func TestRegistryTenantsAreIndependent(t *testing.T) {
	r := newPersonRegistry()
	r.CreateCache("a")
	r.CreateCache("b")

	r.Update("a", []person{{Name: "only-a"}})
	assert.Equal(t, 1, r.Size("a"))
	assert.Equal(t, 0, r.Size("b"))

	r.Remove("a")
	assert.Equal(t, []string{"b"}, r.Tenants())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := newPersonRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tenant := fmt.Sprintf("tenant-%d", i%4)
			for j := 0; j < 50; j++ {
				switch j % 5 {
				case 0:
					r.CreateCache(tenant)
				case 1:
					r.Update(tenant, []person{{Name: "p", Age: j}})
				case 2:
					_ = r.All(tenant)
				case 3:
					_, _ = r.LastUpdated(tenant)
				case 4:
					if i%8 == 0 {
						r.Remove(tenant)
					}
				}
			}
		}(i)
	}
	wg.Wait()

	for _, key := range r.Keys() {
		_, model, ok := ParseKey(key)
		require.True(t, ok)
		assert.Equal(t, "person", model)
	}
}
