// Package observable provides a small reactive value primitive: a mutable
// cell with synchronous change notification, plus derived read-only values
// computed from other observables on every read.
package observable

import "sync"

// Subscription detaches a previously registered listener.
type Subscription interface {
	Unsubscribe()
}

// Source is the minimal dependency surface a derivation needs: change
// notification without access to the value itself.
type Source interface {
	OnChange(fn func()) Subscription
}

// Observable is a readable reactive value.
type Observable[T any] interface {
	Source
	Get() T
	Subscribe(fn func(T)) Subscription
}

// Value is a mutable observable cell. Reads return the latest write and
// writes notify subscribers synchronously before returning.
type Value[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID int64
	subs   map[int64]func(T)
}

// NewValue creates a cell holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		value: initial,
		subs:  make(map[int64]func(T)),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set stores next and notifies every subscriber before returning. Listeners
// run on the writer's goroutine, outside the cell lock.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.value = next
	listeners := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		listeners = append(listeners, fn)
	}
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

// Subscribe registers fn to run on every write.
func (v *Value[T]) Subscribe(fn func(T)) Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	id := v.nextID
	v.subs[id] = fn
	return &valueSubscription[T]{value: v, id: id}
}

// OnChange registers fn to run on every write, ignoring the value.
func (v *Value[T]) OnChange(fn func()) Subscription {
	return v.Subscribe(func(T) { fn() })
}

type valueSubscription[T any] struct {
	value *Value[T]
	once  sync.Once
	id    int64
}

func (s *valueSubscription[T]) Unsubscribe() {
	s.once.Do(func() {
		s.value.mu.Lock()
		defer s.value.mu.Unlock()
		delete(s.value.subs, s.id)
	})
}

// Derive builds a read-only observable whose value is recomputed from its
// inputs on every read, so a reader always observes a result consistent
// with the latest writes to any dependency. Change notifications fire when
// any listed dependency changes.
func Derive[T any](compute func() T, deps ...Source) Observable[T] {
	return &derived[T]{compute: compute, deps: deps}
}

type derived[T any] struct {
	compute func() T
	deps    []Source
}

func (d *derived[T]) Get() T {
	return d.compute()
}

func (d *derived[T]) Subscribe(fn func(T)) Subscription {
	return d.OnChange(func() { fn(d.compute()) })
}

func (d *derived[T]) OnChange(fn func()) Subscription {
	subs := make([]Subscription, 0, len(d.deps))
	for _, dep := range d.deps {
		subs = append(subs, dep.OnChange(fn))
	}
	return &multiSubscription{subs: subs}
}

type multiSubscription struct {
	once sync.Once
	subs []Subscription
}

func (m *multiSubscription) Unsubscribe() {
	m.once.Do(func() {
		for _, s := range m.subs {
			s.Unsubscribe()
		}
	})
}

// Const returns an observable that always yields v and never notifies.
func Const[T any](v T) Observable[T] {
	return constant[T]{value: v}
}

type constant[T any] struct {
	value T
}

func (c constant[T]) Get() T { return c.value }

func (c constant[T]) Subscribe(func(T)) Subscription { return noopSubscription{} }

func (c constant[T]) OnChange(func()) Subscription { return noopSubscription{} }

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

// Not derives the boolean negation of in.
func Not(in Observable[bool]) Observable[bool] {
	return Derive(func() bool { return !in.Get() }, in)
}

// And derives the conjunction of a and b.
func And(a, b Observable[bool]) Observable[bool] {
	return Derive(func() bool { return a.Get() && b.Get() }, a, b)
}

// Or derives the disjunction of a and b.
func Or(a, b Observable[bool]) Observable[bool] {
	return Derive(func() bool { return a.Get() || b.Get() }, a, b)
}
