package cache

import "time"

// DayIndex memoizes one value per calendar day. Each entry expires at the
// following midnight in loc, so a rolled-over day is always recomputed.
type DayIndex[V any] struct {
	lru *LRUCache[string, V]
	loc *time.Location
}

// NewDayIndex keeps the last few days in loc.
func NewDayIndex[V any](loc *time.Location, now func() time.Time) *DayIndex[V] {
	if loc == nil {
		loc = time.Local
	}
	return &DayIndex[V]{lru: NewLRUCache[string, V](4, now), loc: loc}
}

// Key is the index key of t's day.
func (d *DayIndex[V]) Key(t time.Time) string {
	return t.In(d.loc).Format(time.DateOnly)
}

// Get returns the value cached for t's day.
func (d *DayIndex[V]) Get(t time.Time) (V, bool) {
	return d.lru.Get(d.Key(t))
}

// Put caches v for t's day until the next midnight.
func (d *DayIndex[V]) Put(t time.Time, v V) {
	local := t.In(d.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, d.loc)
	d.lru.SetUntil(d.Key(t), v, midnight)
}

// Invalidate forgets t's day.
func (d *DayIndex[V]) Invalidate(t time.Time) {
	d.lru.Remove(d.Key(t))
}
