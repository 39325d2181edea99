package observability

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objcache/internal/cache"
	"objcache/internal/registry"
)

var stringHasher = cache.HasherFuncs[string]{
	ChecksumFunc: func(s string) string { return s },
	SizeFunc:     func(s string) int64 { return int64(len(s)) },
}

func TestMeasurement(t *testing.T) {
	var m Measurement
	assert.Equal(t, Stats{}, m.Stats())

	m.Add(30 * time.Millisecond)
	m.Add(10 * time.Millisecond)
	m.Add(20 * time.Millisecond)

	s := m.Stats()
	assert.Equal(t, int64(3), s.Count)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 30*time.Millisecond, s.Max)
	assert.Equal(t, 20*time.Millisecond, s.Average)
	assert.Equal(t, 60*time.Millisecond, s.Total)
}

func TestMeasurementConcurrentAdds(t *testing.T) {
	var m Measurement
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			m.Add(d)
		}(time.Duration(i) * time.Microsecond)
	}
	wg.Wait()

	s := m.Stats()
	assert.Equal(t, int64(50), s.Count)
	assert.Equal(t, time.Microsecond, s.Min)
	assert.Equal(t, 50*time.Microsecond, s.Max)
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder("person", reg)

	rec.Observe(OpUpdate, 2*time.Millisecond)
	rec.Observe(OpUpdate, 4*time.Millisecond)
	rec.Observe(OpAll, time.Millisecond)

	snap := rec.Snapshot()
	require.Contains(t, snap, OpUpdate)
	assert.Equal(t, int64(2), snap[OpUpdate].Count)
	assert.Equal(t, 3*time.Millisecond, snap[OpUpdate].Average)
	assert.Equal(t, []string{OpAll, OpUpdate}, rec.Operations())

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.calls.WithLabelValues("person", OpUpdate)))
	assert.Equal(t, 2, testutil.CollectAndCount(rec.duration, "objcache_operation_duration_seconds"))

	rec.Reset()
	assert.Empty(t, rec.Snapshot())
}

func TestRecorderWithoutRegisterer(t *testing.T) {
	rec := NewRecorder("person", nil)
	rec.Time(OpFlush, time.Now())
	assert.Equal(t, int64(1), rec.Snapshot()[OpFlush].Count)
}

func TestInstrument(t *testing.T) {
	r := registry.New[string]("words", stringHasher)
	r.CreateCache("acme")

	rec := NewRecorder("words", nil)
	svc := Instrument[string](r, rec)

	svc.Update("acme", []string{"alpha", "beta"})
	svc.Add("acme", []string{"gamma"})
	assert.Len(t, svc.All("acme"), 3)
	assert.Len(t, svc.Since("acme", 0), 3)
	assert.Equal(t, 3, svc.Size("acme"))
	assert.Equal(t, int64(14), svc.Volume("acme"))
	assert.Equal(t, []string{"acme/words"}, svc.Keys())

	_, err := svc.LastUpdated("acme")
	require.NoError(t, err)
	_, err = svc.LastUpdated("ghost")
	require.Error(t, err, "errors pass through the decorator")

	svc.Flush("acme")
	svc.Remove("acme")

	snap := rec.Snapshot()
	for _, op := range []string{OpKeys, OpAll, OpSince, OpUpdate, OpAdd, OpFlush, OpRemove, OpSize, OpVolume} {
		assert.Equal(t, int64(1), snap[op].Count, op)
	}
	assert.Equal(t, int64(2), snap[OpLastUpdated].Count)
}

func TestRegistryCollector(t *testing.T) {
	r := registry.New[string]("words", stringHasher, cache.WithClock(func() int64 { return 5000 }))
	r.CreateCache("acme")
	r.CreateCache("globex")
	r.Update("acme", []string{"alpha", "beta"})

	expected := `
# HELP objcache_cache_entries Number of entries in the tenant cache
# TYPE objcache_cache_entries gauge
objcache_cache_entries{model="words",tenant="acme"} 2
objcache_cache_entries{model="words",tenant="globex"} 0
# HELP objcache_cache_volume_bytes Summed size of the entries in the tenant cache
# TYPE objcache_cache_volume_bytes gauge
objcache_cache_volume_bytes{model="words",tenant="acme"} 9
objcache_cache_volume_bytes{model="words",tenant="globex"} 0
# HELP objcache_cache_last_updated_timestamp_seconds Time of the last mutation of the tenant cache
# TYPE objcache_cache_last_updated_timestamp_seconds gauge
objcache_cache_last_updated_timestamp_seconds{model="words",tenant="acme"} 5
objcache_cache_last_updated_timestamp_seconds{model="words",tenant="globex"} 0
# HELP objcache_registry_tenants Number of registered tenant caches
# TYPE objcache_registry_tenants gauge
objcache_registry_tenants{model="words"} 2
`
	c := NewRegistryCollector(r)
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
}
