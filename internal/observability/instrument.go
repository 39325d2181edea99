package observability

import (
	"time"

	"objcache/internal/core"
)

// Operation names recorded by Instrument.
const (
	OpKeys        = "getKeys"
	OpAll         = "getAll"
	OpSince       = "getAllSince"
	OpUpdate      = "update"
	OpAdd         = "add"
	OpFlush       = "flush"
	OpRemove      = "remove"
	OpSize        = "size"
	OpVolume      = "volume"
	OpLastUpdated = "getLastUpdated"

	// OpSearch is recorded by callers that filter a cache directly.
	OpSearch = "filterIndexed"
)

// instrumented times every call to the wrapped service.
type instrumented[T any] struct {
	next core.CacheService[T]
	rec  *Recorder
}

// Instrument wraps svc so that each operation is timed into rec.
// The wrapped service itself performs no timing.
func Instrument[T any](svc core.CacheService[T], rec *Recorder) core.CacheService[T] {
	return &instrumented[T]{next: svc, rec: rec}
}

func (s *instrumented[T]) Keys() []string {
	defer s.rec.Time(OpKeys, time.Now())
	return s.next.Keys()
}

func (s *instrumented[T]) All(tenant string) []T {
	defer s.rec.Time(OpAll, time.Now())
	return s.next.All(tenant)
}

func (s *instrumented[T]) Since(tenant string, timestamp int64) []T {
	defer s.rec.Time(OpSince, time.Now())
	return s.next.Since(tenant, timestamp)
}

func (s *instrumented[T]) Update(tenant string, objects []T) {
	defer s.rec.Time(OpUpdate, time.Now())
	s.next.Update(tenant, objects)
}

func (s *instrumented[T]) Add(tenant string, objects []T) {
	defer s.rec.Time(OpAdd, time.Now())
	s.next.Add(tenant, objects)
}

func (s *instrumented[T]) Flush(tenant string) {
	defer s.rec.Time(OpFlush, time.Now())
	s.next.Flush(tenant)
}

func (s *instrumented[T]) Remove(tenant string) {
	defer s.rec.Time(OpRemove, time.Now())
	s.next.Remove(tenant)
}

func (s *instrumented[T]) Size(tenant string) int {
	defer s.rec.Time(OpSize, time.Now())
	return s.next.Size(tenant)
}

func (s *instrumented[T]) Volume(tenant string) int64 {
	defer s.rec.Time(OpVolume, time.Now())
	return s.next.Volume(tenant)
}

func (s *instrumented[T]) LastUpdated(tenant string) (int64, error) {
	defer s.rec.Time(OpLastUpdated, time.Now())
	return s.next.LastUpdated(tenant)
}
